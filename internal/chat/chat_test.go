package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"topdivers/internal/events"
	"topdivers/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsServer(t *testing.T, handle func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type recordedWait struct {
	mu     sync.Mutex
	delays []time.Duration
	limit  int
	cancel context.CancelFunc
}

func (w *recordedWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, d)
	if w.limit > 0 && len(w.delays) >= w.limit {
		w.cancel()
		return context.Canceled
	}
	return nil
}

func (w *recordedWait) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

func runAsync(run func(context.Context) error) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("chat client did not stop")
		return nil
	}
}

func TestReconnectScheduleAfterDialFailures(t *testing.T) {
	var dials int
	w := &recordedWait{}
	conn := NewConnection(ConnectionOptions{
		URL: func() string { return "ws://unreachable" },
		Dial: func(ctx context.Context, url string) (Conn, error) {
			dials++
			return nil, errors.New("connection refused")
		},
		Retry: DefaultRetryPolicy,
		Wait:  w.wait,
	})

	err := conn.Run(context.Background())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 6, dials)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, w.recorded())
	assert.Equal(t, StatusError, conn.Status())
}

func TestNoReconnectAfterNormalClosure(t *testing.T) {
	var connections atomic.Int32
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		connections.Add(1)
		_ = conn.WriteJSON(Frame{Type: FrameMessage, Sender: models.SenderAdmin, Text: "welcome"})
		closeNormally(conn)
	})

	var frames []Frame
	w := &recordedWait{}
	conn := NewConnection(ConnectionOptions{
		URL:     func() string { return url },
		OnFrame: func(f Frame) { frames = append(frames, f) },
		Wait:    w.wait,
	})

	require.NoError(t, conn.Run(context.Background()))
	assert.Equal(t, int32(1), connections.Load())
	assert.Empty(t, w.recorded())
	require.Len(t, frames, 1)
	assert.Equal(t, "welcome", frames[0].Text)
	assert.Equal(t, StatusDisconnected, conn.Status())
}

func TestReconnectAfterAbnormalClosure(t *testing.T) {
	var connections atomic.Int32
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		if connections.Add(1) == 1 {
			conn.UnderlyingConn().Close()
			return
		}
		closeNormally(conn)
	})

	w := &recordedWait{}
	conn := NewConnection(ConnectionOptions{URL: func() string { return url }, Wait: w.wait})

	require.NoError(t, conn.Run(context.Background()))
	assert.Equal(t, int32(2), connections.Load())
	assert.Equal(t, []time.Duration{time.Second}, w.recorded())
}

func TestRetryCountResetsOnConnect(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.UnderlyingConn().Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &recordedWait{limit: 4, cancel: cancel}
	conn := NewConnection(ConnectionOptions{URL: func() string { return url }, Wait: w.wait})

	require.NoError(t, conn.Run(ctx))
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, w.recorded())
}

func TestNoReconnectWhenInactive(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.UnderlyingConn().Close()
	})

	w := &recordedWait{}
	conn := NewConnection(ConnectionOptions{
		URL:    func() string { return url },
		Active: func() bool { return false },
		Wait:   w.wait,
	})

	require.NoError(t, conn.Run(context.Background()))
	assert.Empty(t, w.recorded())
}

func TestSendWhileDisconnected(t *testing.T) {
	conn := NewConnection(ConnectionOptions{URL: func() string { return "ws://unused" }})
	assert.ErrorIs(t, conn.Send(Frame{Type: FrameMessage, Text: "hi"}), ErrNotConnected)
}

func TestCloseStopsReconnecting(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	w := &recordedWait{}
	conn := NewConnection(ConnectionOptions{URL: func() string { return url }, Wait: w.wait})
	cancel, done := runAsync(conn.Run)
	defer cancel()

	require.Eventually(t, func() bool { return conn.Status() == StatusConnected }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.NoError(t, waitDone(t, done))
	assert.Empty(t, w.recorded())
}

type memoryStore struct {
	mu    sync.Mutex
	snaps map[string]models.ChatSnapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string]models.ChatSnapshot)}
}

func (m *memoryStore) SaveChatSnapshot(_ context.Context, snap *models.ChatSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Key] = *snap
	return nil
}

func (m *memoryStore) LoadChatSnapshot(_ context.Context, key string) (*models.ChatSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memoryStore) DeleteChatSnapshot(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, key)
	return nil
}

func (m *memoryStore) get(key string) models.ChatSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[key]
}

func TestCustomerConversation(t *testing.T) {
	requested := make(chan string, 1)
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		requested <- r.URL.RequestURI()
		_ = conn.WriteJSON(Frame{Type: FrameSessionCreated, SessionID: "s-1"})

		var in Frame
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		_ = conn.WriteJSON(Frame{Type: FrameMessage, Sender: models.SenderCustomer, Text: in.Text})
		_ = conn.WriteJSON(Frame{Type: FrameAgentTypingStart})
		_ = conn.WriteJSON(Frame{Type: FrameMessage, Sender: models.SenderAdmin, Text: "How can we help?"})
		_ = conn.WriteJSON(Frame{Type: FrameChatClosed})
		closeNormally(conn)
	})

	store := newMemoryStore()
	client := NewCustomerClient(CustomerOptions{BaseURL: url, Store: store})
	cancel, done := runAsync(client.Run)
	defer cancel()

	require.Eventually(t, func() bool { return client.SessionID() == "s-1" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "s-1", store.get(DefaultSnapshotKey).SessionID)
	require.NoError(t, client.Send("  Hello  "))

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, "/chat/ws/customer", <-requested)

	msgs := client.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderCustomer, msgs[0].Sender)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, "How can we help?", msgs[1].Text)
	assert.False(t, client.Typing())
	assert.False(t, client.Active())

	snap := store.get(DefaultSnapshotKey)
	assert.False(t, snap.Active)
	assert.Empty(t, snap.SessionID)
	assert.Len(t, snap.Messages, 2)
}

func TestCustomerResumesSavedSession(t *testing.T) {
	seen := make(chan string, 1)
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		seen <- r.URL.Query().Get("session_id")
		closeNormally(conn)
	})

	store := newMemoryStore()
	require.NoError(t, store.SaveChatSnapshot(context.Background(), &models.ChatSnapshot{
		Key:       DefaultSnapshotKey,
		SessionID: "s-9",
		Active:    true,
		Messages:  []models.ChatMessage{{Sender: models.SenderAdmin, Text: "earlier"}},
	}))

	client := NewCustomerClient(CustomerOptions{BaseURL: url, Store: store})
	require.NoError(t, client.Run(context.Background()))

	assert.Equal(t, "s-9", <-seen)
	require.Len(t, client.Messages(), 1)
	assert.Equal(t, "earlier", client.Messages()[0].Text)
}

func TestCustomerRejectsEmptyMessage(t *testing.T) {
	client := NewCustomerClient(CustomerOptions{BaseURL: "ws://unused"})
	assert.ErrorIs(t, client.Send("   "), ErrEmptyMessage)
	assert.ErrorIs(t, client.Send("hi"), ErrNotConnected)
	assert.Empty(t, client.Messages())
}

func TestAdminConversation(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	requested := make(chan string, 1)
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		requested <- r.URL.Path
		_ = conn.WriteJSON(Frame{Type: FrameInitialSessions, Sessions: []models.ChatSession{
			{ID: "s1", Status: models.ChatStatusActive, CreatedAt: started},
		}})
		_ = conn.WriteJSON(Frame{Type: FrameNewSession, Session: &models.ChatSession{
			ID: "s2", IP: "10.0.0.2", Browser: "Firefox", CreatedAt: started.Add(time.Minute),
		}})
		_ = conn.WriteJSON(Frame{Type: FrameNewMessage, SessionID: "s1", Message: &models.ChatMessage{
			Sender: models.SenderCustomer, Text: "Is the Friday trip full?",
		}})

		var in Frame
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		_ = conn.WriteJSON(Frame{Type: FrameNewMessage, Message: &models.ChatMessage{
			ID: "m-77", SessionID: in.SessionID, Sender: models.SenderAdmin, Text: in.Text,
		}})
		_ = conn.WriteJSON(Frame{Type: FrameSessionEnded, SessionID: "s2"})
		closeNormally(conn)
	})

	bus := events.NewEventBus()
	var mu sync.Mutex
	var startedSessions, ended []string
	bus.Subscribe(events.EventChatSessionStarted, func(e *events.Event) error {
		var p events.ChatSessionPayload
		assert.NoError(t, e.Decode(&p))
		mu.Lock()
		startedSessions = append(startedSessions, p.SessionID+"@"+p.IP)
		mu.Unlock()
		return nil
	})
	bus.Subscribe(events.EventChatSessionEnded, func(e *events.Event) error {
		var p events.ChatSessionPayload
		assert.NoError(t, e.Decode(&p))
		mu.Lock()
		ended = append(ended, p.SessionID)
		mu.Unlock()
		return nil
	})

	admin := NewAdminClient(AdminOptions{BaseURL: url, Events: bus})
	cancel, done := runAsync(admin.Run)
	defer cancel()

	require.Eventually(t, func() bool {
		s, ok := admin.Session("s1")
		return ok && len(s.Messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, admin.Send("s1", "A few seats left"))
	s1, _ := admin.Session("s1")
	require.Len(t, s1.Messages, 2)

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, "/chat/ws/admin", <-requested)

	sessions := admin.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, models.ChatStatusEnded, sessions[1].Status)

	s1 = sessions[0]
	require.Len(t, s1.Messages, 2)
	assert.Equal(t, "m-77", s1.Messages[1].ID)
	assert.False(t, s1.Messages[1].Pending)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s2@10.0.0.2"}, startedSessions)
	assert.Equal(t, []string{"s2"}, ended)
}

func TestFrameChatMessageFlat(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := Frame{Type: FrameMessage, SessionID: "s", Sender: models.SenderAdmin, Text: "hi", Timestamp: &ts, MessageID: "m1"}
	msg := f.ChatMessage()
	assert.Equal(t, models.ChatMessage{ID: "m1", SessionID: "s", Sender: models.SenderAdmin, Text: "hi", Timestamp: ts}, msg)
	assert.Equal(t, "s", f.SessionKey())
}

func TestCloseCode(t *testing.T) {
	assert.Equal(t, websocket.CloseNormalClosure, CloseCode(&websocket.CloseError{Code: websocket.CloseNormalClosure}))
	assert.Equal(t, websocket.CloseAbnormalClosure, CloseCode(errors.New("EOF")))
}
