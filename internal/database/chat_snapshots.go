package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"topdivers/internal/models"
)

// SaveChatSnapshot replaces the snapshot stored under snap.Key.
func (db *DB) SaveChatSnapshot(ctx context.Context, snap *models.ChatSnapshot) error {
	if snap.Key == "" {
		return errors.New("snapshot key is required")
	}
	messages := snap.Messages
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode chat messages: %w", err)
	}

	snap.UpdatedAt = time.Now()
	query := `INSERT INTO chat_snapshots (key, session_id, active, messages, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(key) DO UPDATE SET
                session_id = excluded.session_id,
                active = excluded.active,
                messages = excluded.messages,
                updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query, snap.Key, snap.SessionID, snap.Active, string(raw), snap.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save chat snapshot: %w", err)
	}
	return nil
}

// LoadChatSnapshot returns nil without an error when nothing is stored.
func (db *DB) LoadChatSnapshot(ctx context.Context, key string) (*models.ChatSnapshot, error) {
	query := `SELECT key, session_id, active, messages, updated_at FROM chat_snapshots WHERE key = ?`

	var snap models.ChatSnapshot
	var raw string
	err := db.QueryRowContext(ctx, query, key).Scan(&snap.Key, &snap.SessionID, &snap.Active, &raw, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.Messages); err != nil {
		return nil, fmt.Errorf("decode chat messages: %w", err)
	}
	return &snap, nil
}

func (db *DB) DeleteChatSnapshot(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM chat_snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete chat snapshot: %w", err)
	}
	return nil
}
