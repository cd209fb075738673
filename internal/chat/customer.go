package chat

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"topdivers/internal/domain"
	"topdivers/internal/models"
	"topdivers/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultSnapshotKey is the storage key of the customer conversation.
const DefaultSnapshotKey = "chat-session"

var ErrEmptyMessage = errors.New("chat: message is empty")

type CustomerOptions struct {
	BaseURL string
	Store   domain.SnapshotStore
	Key     string
	Dial    DialFunc
	Retry   worker.RetryPolicy
	Logger  *zerolog.Logger

	OnMessage func(models.ChatMessage)
	OnTyping  func(typing bool)
	OnStatus  func(Status)
	OnClosed  func()
}

// CustomerClient is one visitor's support conversation. Its session id and
// history are saved after every change and restored on start, so a restart
// resumes the same backend session.
type CustomerClient struct {
	opts CustomerOptions
	conn *Connection

	mu        sync.Mutex
	sessionID string
	messages  []models.ChatMessage
	active    bool
	typing    bool
}

func NewCustomerClient(opts CustomerOptions) *CustomerClient {
	if opts.Key == "" {
		opts.Key = DefaultSnapshotKey
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	c := &CustomerClient{opts: opts}
	c.conn = NewConnection(ConnectionOptions{
		URL:      c.URL,
		Dial:     opts.Dial,
		Retry:    opts.Retry,
		Role:     models.SenderCustomer,
		Logger:   opts.Logger,
		Active:   c.Active,
		OnFrame:  c.handle,
		OnStatus: opts.OnStatus,
	})
	return c
}

// URL is the customer endpoint, carrying session_id once one is known.
func (c *CustomerClient) URL() string {
	u := strings.TrimRight(c.opts.BaseURL, "/") + "/chat/ws/customer"
	if id := c.SessionID(); id != "" {
		u += "?" + url.Values{"session_id": {id}}.Encode()
	}
	return u
}

// Restore loads the saved conversation, if any.
func (c *CustomerClient) Restore(ctx context.Context) error {
	if c.opts.Store == nil {
		return nil
	}
	snap, err := c.opts.Store.LoadChatSnapshot(ctx, c.opts.Key)
	if err != nil || snap == nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = snap.SessionID
	c.messages = append([]models.ChatMessage(nil), snap.Messages...)
	c.mu.Unlock()
	return nil
}

// Run opens the conversation and blocks until it ends.
func (c *CustomerClient) Run(ctx context.Context) error {
	if err := c.Restore(ctx); err != nil {
		c.opts.Logger.Warn().Err(err).Msg("failed to restore chat session")
	}
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	return c.conn.Run(ctx)
}

// Send posts text to the agent. The message is shown as pending right away
// and confirmed by the server echo; it is dropped if the write fails.
func (c *CustomerClient) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: c.sessionID,
		Sender:    models.SenderCustomer,
		Text:      text,
		Timestamp: time.Now(),
		Pending:   true,
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	if err := c.conn.Send(Frame{Type: FrameMessage, Text: text}); err != nil {
		c.mu.Lock()
		c.messages = removeMessage(c.messages, msg.ID)
		c.mu.Unlock()
		return err
	}
	c.persist()
	return nil
}

// Close ends the conversation with a normal closure.
func (c *CustomerClient) Close() error {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *CustomerClient) Status() Status { return c.conn.Status() }

func (c *CustomerClient) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *CustomerClient) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *CustomerClient) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

func (c *CustomerClient) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

func (c *CustomerClient) handle(f Frame) {
	switch f.Type {
	case FrameSessionCreated:
		c.mu.Lock()
		c.sessionID = f.SessionKey()
		c.active = true
		c.mu.Unlock()
		c.persist()

	case FrameMessage:
		msg := f.ChatMessage()
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		c.mu.Lock()
		c.typing = false
		c.messages = appendOrConfirm(c.messages, msg)
		c.mu.Unlock()
		c.persist()
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(msg)
		}

	case FrameChatClosed:
		c.mu.Lock()
		c.active = false
		c.typing = false
		c.sessionID = ""
		c.mu.Unlock()
		c.persist()
		if c.opts.OnClosed != nil {
			c.opts.OnClosed()
		}

	case FrameAgentTypingStart, FrameAgentTypingEnd:
		typing := f.Type == FrameAgentTypingStart
		c.mu.Lock()
		c.typing = typing
		c.mu.Unlock()
		if c.opts.OnTyping != nil {
			c.opts.OnTyping(typing)
		}

	default:
		c.opts.Logger.Debug().Str("type", f.Type).Msg("ignoring chat frame")
	}
}

func (c *CustomerClient) persist() {
	if c.opts.Store == nil {
		return
	}
	c.mu.Lock()
	snap := &models.ChatSnapshot{
		Key:       c.opts.Key,
		SessionID: c.sessionID,
		Active:    c.active,
		Messages:  append([]models.ChatMessage(nil), c.messages...),
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.opts.Store.SaveChatSnapshot(ctx, snap); err != nil {
		c.opts.Logger.Warn().Err(err).Msg("failed to save chat session")
	}
}

func removeMessage(messages []models.ChatMessage, id string) []models.ChatMessage {
	for i := range messages {
		if messages[i].ID == id {
			return append(messages[:i], messages[i+1:]...)
		}
	}
	return messages
}

// appendOrConfirm replaces the oldest pending message with the same sender
// and text, or appends msg.
func appendOrConfirm(messages []models.ChatMessage, msg models.ChatMessage) []models.ChatMessage {
	for i := range messages {
		m := messages[i]
		if m.Pending && m.Sender == msg.Sender && m.Text == msg.Text {
			if msg.ID == "" {
				msg.ID = m.ID
			}
			messages[i] = msg
			return messages
		}
	}
	return append(messages, msg)
}
