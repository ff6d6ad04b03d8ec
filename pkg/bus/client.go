package bus

import (
	"context"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/logger"
)

const (
	dialTimeout        = 10 * time.Second
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
	reconnectAttempts  = 10
)

// ClientConfig configures a bus client.
type ClientConfig struct {
	// URL is the WebSocket endpoint, e.g. ws://127.0.0.1:8181/core.
	URL string
}

// Client is the WebSocket bus client. Reconnection is the one retried
// operation in the skill: commands against the OS are never retried, but
// losing the bus must not kill the daemon.
type Client struct {
	cfg ClientConfig

	writeMu sync.Mutex
	conn    *websocket.Conn

	handlersMu sync.RWMutex
	handlers   map[string][]Handler

	waitersMu sync.Mutex
	waiters   map[string][]chan Message
}

// NewClient creates a bus client for the given endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("bus URL cannot be empty")
	}
	return &Client{
		cfg:      cfg,
		handlers: make(map[string][]Handler),
		waiters:  make(map[string][]chan Message),
	}, nil
}

// Connect dials the bus, retrying with capped exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	err := retry.Do(
		func() error {
			dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()

			conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
			if err != nil {
				return err
			}

			c.writeMu.Lock()
			c.conn = conn
			c.writeMu.Unlock()
			return nil
		},
		retry.Attempts(reconnectAttempts),
		retry.Delay(reconnectBaseDelay),
		retry.MaxDelay(reconnectMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying message bus connection")
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to message bus at %s", c.cfg.URL)
	}

	logger.G(ctx).WithField("url", c.cfg.URL).Info("connected to message bus")
	return nil
}

// On registers a handler for a message type.
func (c *Client) On(msgType string, handler Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[msgType] = append(c.handlers[msgType], handler)
}

// Emit sends a message to the host.
func (c *Client) Emit(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected to message bus")
	}
	return errors.Wrap(c.conn.WriteJSON(msg), "failed to emit message")
}

// Request emits a message and waits for the next message of replyType.
func (c *Client) Request(ctx context.Context, msg Message, replyType string, timeout time.Duration) (Message, error) {
	ch := make(chan Message, 1)

	c.waitersMu.Lock()
	c.waiters[replyType] = append(c.waiters[replyType], ch)
	c.waitersMu.Unlock()

	if err := c.Emit(msg); err != nil {
		c.removeWaiter(replyType, ch)
		return Message{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-time.After(timeout):
		c.removeWaiter(replyType, ch)
		return Message{}, errors.Errorf("timed out waiting for %s", replyType)
	case <-ctx.Done():
		c.removeWaiter(replyType, ch)
		return Message{}, ctx.Err()
	}
}

func (c *Client) removeWaiter(replyType string, ch chan Message) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()

	waiters := c.waiters[replyType]
	for i, w := range waiters {
		if w == ch {
			c.waiters[replyType] = append(waiters[:i], waiters[i+1:]...)
			return
		}
	}
}

// Listen reads and dispatches messages until the context is cancelled.
// A dropped connection is re-established transparently; Listen only
// returns once the context ends or reconnection gives up.
func (c *Client) Listen(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		c.writeMu.Lock()
		conn := c.conn
		c.writeMu.Unlock()
		if conn == nil {
			return errors.New("not connected to message bus")
		}

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("message bus connection lost, reconnecting")
			if err := c.Connect(ctx); err != nil {
				return err
			}
			continue
		}

		c.dispatch(ctx, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg Message) {
	c.waitersMu.Lock()
	if waiters := c.waiters[msg.Type]; len(waiters) > 0 {
		ch := waiters[0]
		c.waiters[msg.Type] = waiters[1:]
		c.waitersMu.Unlock()
		ch <- msg
		return
	}
	c.waitersMu.Unlock()

	c.handlersMu.RLock()
	handlers := c.handlers[msg.Type]
	c.handlersMu.RUnlock()

	// Sequential dispatch, matching the host's single intent thread.
	for _, handler := range handlers {
		handler(ctx, msg)
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
