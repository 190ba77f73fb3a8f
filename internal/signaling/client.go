package signaling

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/BioHazard786/hearth/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is the websocket transport of one Session.
type Client struct {
	session *Session
	conn    *websocket.Conn
	codec   protocol.Codec
	addr    string
	maxSize int64
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ReadPump pumps frames from the websocket connection into the session.
//
// The hub runs ReadPump in a per-connection goroutine, so there is at most
// one reader on a connection. When it returns the session is torn down.
func (c *Client) ReadPump() {
	defer func() {
		c.session.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.logger.Warn("rate limit exceeded, discarding frame")
			continue
		}

		cmd, err := protocol.DecodeCommand(c.codec, data)
		if err != nil {
			c.logger.Warn("ignoring frame", "error", err)
			continue
		}

		c.logger.Debug("command received", "event", cmd.Name())
		c.session.Handle(cmd)
	}
}

// WritePump pumps messages from the session outbox to the websocket
// connection and keeps it alive with pings.
//
// The hub runs WritePump in a per-connection goroutine, so there is at most
// one writer on a connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	outbox := c.session.Outbox()
	for {
		select {
		case msg, ok := <-outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The session closed the outbox.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Encode(msg)
			if err != nil {
				c.logger.Error("encoding event", "event", msg.Event, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("frame exceeded maximum size", "limit", c.maxSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Info("client disconnected")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Warn("unexpected close", "error", err)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.logger.Info("connection closed")
	default:
		c.logger.Info("read failed", "error", err)
	}
}
