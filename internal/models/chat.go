package models

import "time"

type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Pending marks an admin message inserted locally before the server echo.
	Pending bool `json:"pending,omitempty"`
}

type ChatSession struct {
	ID        string        `json:"session_id"`
	Status    string        `json:"status"`
	IP        string        `json:"ip_address,omitempty"`
	Browser   string        `json:"browser,omitempty"`
	Device    string        `json:"device,omitempty"`
	Messages  []ChatMessage `json:"messages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ChatSnapshot is the customer widget state persisted between runs.
type ChatSnapshot struct {
	Key       string        `json:"key"`
	SessionID string        `json:"session_id"`
	Active    bool          `json:"active"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}
