package auth

import (
	"context"

	"topdivers/internal/models"
)

type stateKey struct{}

func WithState(ctx context.Context, state *models.AuthState) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

// StateFromContext returns the verified state the gate attached, or nil.
func StateFromContext(ctx context.Context) *models.AuthState {
	state, _ := ctx.Value(stateKey{}).(*models.AuthState)
	return state
}
