package chat

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/models"
	"topdivers/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AdminOptions struct {
	BaseURL string
	Token   string
	Dial    DialFunc
	Retry   worker.RetryPolicy
	Logger  *zerolog.Logger
	Events  domain.EventPublisher

	OnSession func(models.ChatSession)
	OnMessage func(models.ChatMessage)
	OnStatus  func(Status)
}

// AdminClient follows every customer session on the admin socket.
type AdminClient struct {
	opts AdminOptions
	conn *Connection

	mu       sync.Mutex
	sessions map[string]*models.ChatSession
}

func NewAdminClient(opts AdminOptions) *AdminClient {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	a := &AdminClient{opts: opts, sessions: make(map[string]*models.ChatSession)}
	a.conn = NewConnection(ConnectionOptions{
		URL:      a.URL,
		Dial:     opts.Dial,
		Retry:    opts.Retry,
		Role:     models.SenderAdmin,
		Logger:   opts.Logger,
		OnFrame:  a.handle,
		OnStatus: opts.OnStatus,
	})
	return a
}

func (a *AdminClient) URL() string {
	u := strings.TrimRight(a.opts.BaseURL, "/") + "/chat/ws/admin"
	if a.opts.Token != "" {
		u += "?" + url.Values{"token": {a.opts.Token}}.Encode()
	}
	return u
}

func (a *AdminClient) Run(ctx context.Context) error {
	return a.conn.Run(ctx)
}

func (a *AdminClient) Close() error { return a.conn.Close() }

func (a *AdminClient) Status() Status { return a.conn.Status() }

// Send replies in sessionID. The reply is inserted locally as pending before
// the write and confirmed by the server echo; a reply the server later
// rejects stays pending.
func (a *AdminClient) Send(sessionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    models.SenderAdmin,
		Text:      text,
		Timestamp: time.Now(),
		Pending:   true,
	}
	a.mu.Lock()
	s := a.session(sessionID)
	s.Messages = append(s.Messages, msg)
	a.mu.Unlock()

	if err := a.conn.Send(Frame{Type: FrameMessage, SessionID: sessionID, Text: text}); err != nil {
		a.mu.Lock()
		if s, ok := a.sessions[sessionID]; ok {
			s.Messages = removeMessage(s.Messages, msg.ID)
		}
		a.mu.Unlock()
		return err
	}
	return nil
}

// Sessions returns a copy of the known sessions, oldest first.
func (a *AdminClient) Sessions() []models.ChatSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ChatSession, 0, len(a.sessions))
	for _, s := range a.sessions {
		cp := *s
		cp.Messages = append([]models.ChatMessage(nil), s.Messages...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (a *AdminClient) Session(id string) (models.ChatSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		return models.ChatSession{}, false
	}
	cp := *s
	cp.Messages = append([]models.ChatMessage(nil), s.Messages...)
	return cp, true
}

// session returns the entry for id, creating it. Callers hold a.mu.
func (a *AdminClient) session(id string) *models.ChatSession {
	s, ok := a.sessions[id]
	if !ok {
		s = &models.ChatSession{ID: id, Status: models.ChatStatusActive, CreatedAt: time.Now()}
		a.sessions[id] = s
	}
	return s
}

func (a *AdminClient) handle(f Frame) {
	switch f.Type {
	case FrameInitialSessions:
		a.mu.Lock()
		a.sessions = make(map[string]*models.ChatSession, len(f.Sessions))
		for i := range f.Sessions {
			s := f.Sessions[i]
			a.sessions[s.ID] = &s
		}
		a.mu.Unlock()

	case FrameNewSession:
		if f.Session == nil && f.SessionID == "" {
			return
		}
		s := models.ChatSession{ID: f.SessionKey(), Status: models.ChatStatusActive, CreatedAt: time.Now()}
		if f.Session != nil {
			s = *f.Session
			if s.Status == "" {
				s.Status = models.ChatStatusActive
			}
		}
		a.mu.Lock()
		a.sessions[s.ID] = &s
		a.mu.Unlock()

		a.publish(events.EventChatSessionStarted, s)
		if a.opts.OnSession != nil {
			a.opts.OnSession(s)
		}

	case FrameNewMessage, FrameMessage:
		msg := f.ChatMessage()
		if msg.SessionID == "" {
			return
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		a.mu.Lock()
		s := a.session(msg.SessionID)
		s.Messages = appendOrConfirm(s.Messages, msg)
		a.mu.Unlock()
		if a.opts.OnMessage != nil {
			a.opts.OnMessage(msg)
		}

	case FrameSessionEnded, FrameChatClosed:
		id := f.SessionKey()
		if id == "" {
			return
		}
		status := models.ChatStatusEnded
		if f.Type == FrameChatClosed {
			status = models.ChatStatusClosed
		}
		a.mu.Lock()
		s := a.session(id)
		s.Status = status
		snapshot := *s
		a.mu.Unlock()
		a.publish(events.EventChatSessionEnded, snapshot)

	default:
		a.opts.Logger.Debug().Str("type", f.Type).Msg("ignoring chat frame")
	}
}

func (a *AdminClient) publish(eventType string, s models.ChatSession) {
	if a.opts.Events == nil {
		return
	}
	payload := events.ChatSessionPayload{
		SessionID: s.ID,
		IP:        s.IP,
		Browser:   s.Browser,
		Device:    s.Device,
		At:        time.Now(),
	}
	if err := a.opts.Events.PublishJSON(eventType, payload); err != nil {
		a.opts.Logger.Warn().Err(err).Str("event", eventType).Msg("chat event handler failed")
	}
}
