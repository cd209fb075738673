// Package chat is the live-chat WebSocket client used by the customer and
// admin terminals.
package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"topdivers/internal/models"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// DialFunc opens a connection to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// WebsocketDialer dials with gorilla/websocket. No sub-protocol is
// negotiated.
func WebsocketDialer(header http.Header) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	return func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// CloseCode extracts the close status from a read error. Anything that is
// not a close frame counts as an abnormal closure.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}

// Frame is one JSON text frame in either direction.
type Frame struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id,omitempty"`
	Text      string               `json:"text,omitempty"`
	Sender    string               `json:"sender,omitempty"`
	Timestamp *time.Time           `json:"timestamp,omitempty"`
	MessageID string               `json:"message_id,omitempty"`
	Message   *models.ChatMessage  `json:"message,omitempty"`
	Session   *models.ChatSession  `json:"session,omitempty"`
	Sessions  []models.ChatSession `json:"sessions,omitempty"`
}

const (
	FrameSessionCreated   = "session_created"
	FrameMessage          = "message"
	FrameChatClosed       = "chat_closed"
	FrameAgentTypingStart = "agent_typing_start"
	FrameAgentTypingEnd   = "agent_typing_end"
	FrameInitialSessions  = "initial_sessions"
	FrameNewSession       = "new_session"
	FrameNewMessage       = "new_message"
	FrameSessionEnded     = "session_ended"
)

// ChatMessage returns the message carried by f, either nested or flat.
func (f Frame) ChatMessage() models.ChatMessage {
	if f.Message != nil {
		msg := *f.Message
		if msg.SessionID == "" {
			msg.SessionID = f.SessionID
		}
		return msg
	}
	msg := models.ChatMessage{
		ID:        f.MessageID,
		SessionID: f.SessionID,
		Sender:    f.Sender,
		Text:      f.Text,
	}
	if f.Timestamp != nil {
		msg.Timestamp = *f.Timestamp
	}
	return msg
}

// SessionKey returns the session id from the flat field or the nested
// session.
func (f Frame) SessionKey() string {
	if f.SessionID != "" {
		return f.SessionID
	}
	if f.Session != nil {
		return f.Session.ID
	}
	if f.Message != nil {
		return f.Message.SessionID
	}
	return ""
}
