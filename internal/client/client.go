// Package client speaks the relay protocol over a websocket. It turns frames
// into typed events, queues outbound commands and redials after unexpected
// disconnects.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/hearth/internal/dns"
	"github.com/BioHazard786/hearth/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 20
)

// Options configures a Client.
type Options struct {
	// URL is the relay's websocket endpoint.
	URL string

	// Codec selects the subprotocol. Nil means JSON.
	Codec protocol.Codec

	// ReconnectAttempts is how many times to redial after an unexpected
	// disconnect, waiting ReconnectDelay before each attempt.
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// OnReconnect is called after a successful redial. The relay issues a
	// new identity on every connection, so room membership is gone.
	OnReconnect func(attempt int)

	// NetDialContext overrides DNS resolution and dialing.
	NetDialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	Logger *slog.Logger
}

// Client manages the websocket connection to the relay.
type Client struct {
	opts   Options
	codec  protocol.Codec
	dialer websocket.Dialer
	logger *slog.Logger

	events   chan protocol.Event
	outgoing chan *protocol.Message
	closing  chan struct{}
	done     chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	id  string
	err error
}

// Dial connects to the relay and starts processing events. The returned
// client keeps running until Close is called or reconnection gives up.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NetDialContext == nil {
		opts.NetDialContext = dns.DialContext
	}

	c := &Client{
		opts:  opts,
		codec: opts.Codec,
		dialer: websocket.Dialer{
			NetDialContext:   opts.NetDialContext,
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{opts.Codec.Name()},
		},
		logger:   opts.Logger.With("server", opts.URL, "codec", opts.Codec.Name()),
		events:   make(chan protocol.Event, 64),
		outgoing: make(chan *protocol.Message, 64),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	go c.run(ctx, conn)
	return c, nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, WrapError("connect", err, resp.Status)
		}
		return nil, NewError("connect", err)
	}
	if got := conn.Subprotocol(); got != "" && got != c.codec.Name() {
		conn.Close()
		return nil, WrapError("connect", protocol.ErrUnknownCodec, got)
	}

	conn.SetReadLimit(maxMessageSize)
	c.logger.Debug("connected")
	return conn, nil
}

// run serves connections until the client is closed or a redial fails.
func (c *Client) run(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		close(c.events)
		close(c.done)
	}()

	for {
		err := c.serve(conn)
		if c.isClosing() {
			return
		}
		c.logger.Warn("disconnected from relay", "error", err)

		conn, err = c.reconnect(ctx)
		if err != nil {
			c.setErr(err)
			return
		}
	}
}

// serve pumps one connection and returns when it dies.
func (c *Client) serve(conn *websocket.Conn) error {
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(conn, stop)
	}()

	err := c.readPump(conn)
	close(stop)
	conn.Close()
	<-writerDone
	return err
}

func (c *Client) reconnect(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-time.After(c.opts.ReconnectDelay):
		case <-c.closing:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, NewError("reconnect", ctx.Err())
		}

		c.logger.Info("reconnecting", "attempt", attempt)
		conn, err := c.connect(ctx)
		if err != nil {
			c.logger.Debug("reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		if c.opts.OnReconnect != nil {
			c.opts.OnReconnect(attempt)
		}
		return conn, nil
	}

	return nil, WrapError("reconnect", ErrReconnectFailed, fmt.Sprintf("gave up after %d attempts", c.opts.ReconnectAttempts))
}

// readPump reads frames from the connection and publishes decoded events.
func (c *Client) readPump(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, err := protocol.DecodeEvent(c.codec, data)
		if err != nil {
			c.logger.Warn("ignoring frame", "error", err)
			continue
		}
		if assigned, ok := ev.(protocol.UserAssigned); ok {
			c.mu.Lock()
			c.id = assigned.UserID
			c.mu.Unlock()
		}

		select {
		case c.events <- ev:
		case <-c.closing:
			return ErrClosed
		}
	}
}

// writePump writes queued commands to the connection and sends periodic pings.
func (c *Client) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(conn, msg); err != nil {
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-c.closing:
			c.flush(conn)
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// Give the relay a moment to answer the close, then stop reading.
			conn.SetReadDeadline(time.Now().Add(time.Second))
			return

		case <-stop:
			return
		}
	}
}

func (c *Client) write(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		c.logger.Error("encoding command", "event", msg.Event, "error", err)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(c.codec.FrameType(), data)
}

// flush writes whatever is still queued.
func (c *Client) flush(conn *websocket.Conn) {
	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(conn, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Send queues a command for the relay.
func (c *Client) Send(cmd protocol.Command) error {
	msg := protocol.NewMessage(cmd)
	select {
	case <-c.closing:
		return NewError("send "+cmd.Name(), ErrClosed)
	case <-c.done:
		return NewError("send "+cmd.Name(), c.doneErr())
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.closing:
		return NewError("send "+cmd.Name(), ErrClosed)
	case <-c.done:
		return NewError("send "+cmd.Name(), c.doneErr())
	}
}

// Events returns the stream of events from the relay. It is closed when the
// client stops.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// Done is closed when the client stops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ID returns the identity most recently assigned by the relay, or "" before
// the first user-id event.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Err reports why the client stopped. It is nil while running and after a
// deliberate Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close says goodbye to the relay and waits for the connection to wind down.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.done
}

func (c *Client) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *Client) setErr(err error) {
	if errors.Is(err, ErrClosed) {
		return
	}
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *Client) doneErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrDisconnected
}
