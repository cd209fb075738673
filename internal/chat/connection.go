package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"topdivers/internal/metrics"
	"topdivers/internal/worker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

var (
	// ErrNotConnected is returned by Send while no connection is open.
	// Messages are not queued.
	ErrNotConnected     = errors.New("chat: not connected")
	ErrRetriesExhausted = errors.New("chat: reconnect attempts exhausted")
)

const closeGrace = 2 * time.Second

// DefaultRetryPolicy gives the 1s, 2s, 4s, 8s, 16s reconnect schedule.
var DefaultRetryPolicy = worker.RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2,
}

type ConnectionOptions struct {
	// URL is evaluated on every dial so the customer can resume its
	// session after reconnecting.
	URL    func() string
	Dial   DialFunc
	Retry  worker.RetryPolicy
	Role   string
	Logger *zerolog.Logger

	// Active reports whether the conversation still wants a connection.
	Active   func() bool
	OnFrame  func(Frame)
	OnStatus func(Status)

	// Wait sleeps between reconnects; tests replace it.
	Wait func(ctx context.Context, d time.Duration) error
}

// Connection keeps one WebSocket open, reconnecting with backoff after
// abnormal closures.
type Connection struct {
	opts ConnectionOptions

	mu      sync.Mutex
	conn    Conn
	status  Status
	closing bool
}

func NewConnection(opts ConnectionOptions) *Connection {
	if opts.Dial == nil {
		opts.Dial = WebsocketDialer(nil)
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialDelay == 0 {
		opts.Retry = DefaultRetryPolicy
	}
	if opts.Active == nil {
		opts.Active = func() bool { return true }
	}
	if opts.Wait == nil {
		opts.Wait = sleep
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Connection{opts: opts, status: StatusDisconnected}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Connection) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed && c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}

// Run dials and reads until ctx is done, the peer closes normally, Close is
// called or the conversation stops being active. It returns
// ErrRetriesExhausted when MaxRetries reconnects in a row fail.
func (c *Connection) Run(ctx context.Context) error {
	c.mu.Lock()
	c.closing = false
	c.mu.Unlock()

	retries := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.setStatus(StatusConnecting)
		url := c.opts.URL()
		conn, err := c.opts.Dial(ctx, url)

		code := websocket.CloseAbnormalClosure
		if err != nil {
			c.opts.Logger.Warn().Err(err).Str("url", url).Msg("chat dial failed")
			c.setStatus(StatusError)
		} else {
			retries = 0
			code = c.serve(ctx, conn)
			c.setStatus(StatusDisconnected)
		}

		if c.stopped(ctx, code) {
			return nil
		}
		if retries >= c.opts.Retry.MaxRetries {
			c.setStatus(StatusError)
			return ErrRetriesExhausted
		}

		retries++
		delay := c.opts.Retry.NextDelay(retries)
		metrics.IncChatReconnect(c.opts.Role)
		c.opts.Logger.Info().
			Int("close_code", code).
			Int("attempt", retries).
			Dur("delay", delay).
			Msg("chat reconnect scheduled")
		if err := c.opts.Wait(ctx, delay); err != nil {
			return nil
		}
	}
}

func (c *Connection) stopped(ctx context.Context, code int) bool {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	return closing || code == websocket.CloseNormalClosure || ctx.Err() != nil || !c.opts.Active()
}

// serve reads frames from conn until it fails and returns the close code.
func (c *Connection) serve(ctx context.Context, conn Conn) int {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setStatus(StatusConnected)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return CloseCode(err)
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.opts.Logger.Warn().Err(err).Msg("dropping malformed chat frame")
			continue
		}
		if c.opts.OnFrame != nil {
			c.opts.OnFrame(frame)
		}
	}
}

// Send writes frame on the open connection. It fails with ErrNotConnected
// when there is none.
func (c *Connection) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.status != StatusConnected {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(frame)
}

// Close ends the conversation with a normal closure; Run does not
// reconnect afterwards.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return conn.Close()
	}
	// the peer echoes the close frame; drop the socket if it does not
	time.AfterFunc(closeGrace, func() { _ = conn.Close() })
	return nil
}
