package database

import (
	"context"
	"testing"
	"time"

	"topdivers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSnapshots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	snap, err := db.LoadChatSnapshot(ctx, "customer")
	require.NoError(t, err)
	assert.Nil(t, snap)

	ts := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	err = db.SaveChatSnapshot(ctx, &models.ChatSnapshot{
		Key:       "customer",
		SessionID: "s-1",
		Active:    true,
		Messages: []models.ChatMessage{
			{Sender: models.SenderCustomer, Text: "Hi", Timestamp: ts},
			{Sender: models.SenderAdmin, Text: "Hello!", Timestamp: ts.Add(time.Minute)},
		},
	})
	require.NoError(t, err)

	snap, err = db.LoadChatSnapshot(ctx, "customer")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "s-1", snap.SessionID)
	assert.True(t, snap.Active)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hello!", snap.Messages[1].Text)
	assert.True(t, ts.Equal(snap.Messages[0].Timestamp))

	// upsert replaces the previous state
	err = db.SaveChatSnapshot(ctx, &models.ChatSnapshot{Key: "customer", SessionID: "s-1", Active: false})
	require.NoError(t, err)
	snap, err = db.LoadChatSnapshot(ctx, "customer")
	require.NoError(t, err)
	assert.False(t, snap.Active)
	assert.Empty(t, snap.Messages)

	require.NoError(t, db.DeleteChatSnapshot(ctx, "customer"))
	snap, err = db.LoadChatSnapshot(ctx, "customer")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveChatSnapshot_RequiresKey(t *testing.T) {
	db := setupTestDB(t)
	assert.Error(t, db.SaveChatSnapshot(context.Background(), &models.ChatSnapshot{}))
}
