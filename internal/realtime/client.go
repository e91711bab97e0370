package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/gorilla/websocket"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// Hooks receive what a Client observes. Nil hooks are skipped.
type Hooks struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnState      func(state livegame.State)
	OnDeleted    func(at time.Time)
}

// Client subscribes to a league's live game events and reconnects when the
// connection drops.
type Client struct {
	url    string
	header http.Header
	hooks  Hooks
	dialer *websocket.Dialer

	minBackoff time.Duration
}

func NewClient(url string, header http.Header, hooks Hooks) *Client {
	return &Client{
		url:        url,
		header:     header,
		hooks:      hooks,
		dialer:     websocket.DefaultDialer,
		minBackoff: minBackoff,
	}
}

// ConnectWithRetry connects and reconnects on failure with exponential
// backoff. Blocks until ctx is cancelled.
func (c *Client) ConnectWithRetry(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}

		attempt++
		backoff := time.Duration(float64(c.minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			slog.Warn("realtime: connection lost", "attempt", attempt, "error", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) connect(ctx context.Context) (err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if c.hooks.OnConnect != nil {
		c.hooks.OnConnect()
	}
	defer func() {
		if c.hooks.OnDisconnect != nil {
			c.hooks.OnDisconnect(err)
		}
	}()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		evt, err := UnmarshalEvent(msg)
		if err != nil {
			slog.Warn("realtime: unmarshal error", "error", err)
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Client) dispatch(evt Event) {
	switch evt.Type {
	case EventStateUpdated:
		if c.hooks.OnState != nil && evt.State != nil {
			c.hooks.OnState(*evt.State)
		}
	case EventStateDeleted:
		if c.hooks.OnDeleted != nil {
			c.hooks.OnDeleted(evt.Timestamp)
		}
	}
}
