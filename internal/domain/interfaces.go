package domain

import (
	"context"
	"time"

	"topdivers/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AuthRepository keeps the remote verification stamps and the login attempt
// counters that back the auth gate.
type AuthRepository interface {
	LastVerified(ctx context.Context, tokenKey string) (time.Time, bool, error)
	MarkVerified(ctx context.Context, tokenKey string, at time.Time) error
	ForgetVerified(ctx context.Context, tokenKey string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	ResetRateLimit(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// LedgerWriter mirrors invoices into the external spreadsheet ledger.
type LedgerWriter interface {
	UpsertInvoice(ctx context.Context, inv *models.Invoice) error
	UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string, pickedUp bool) error
}

// SnapshotStore persists the customer chat state between runs.
type SnapshotStore interface {
	SaveChatSnapshot(ctx context.Context, snap *models.ChatSnapshot) error
	LoadChatSnapshot(ctx context.Context, key string) (*models.ChatSnapshot, error)
	DeleteChatSnapshot(ctx context.Context, key string) error
}
