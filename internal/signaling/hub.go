package signaling

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Options tunes a Hub. Zero values fall back to the defaults noted on each
// field.
type Options struct {
	// SendBuffer is the number of outbound messages queued per connection
	// before further deliveries to it are dropped. Default 256.
	SendBuffer int

	// MaxMessageSize caps inbound frames in bytes. Default 1 MiB.
	MaxMessageSize int64

	// RateLimit is the sustained number of inbound frames per second a
	// connection may send, with RateBurst headroom. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int

	// NegotiationTimeout ends call requests that are still ringing after
	// this long. Zero keeps them until a party ends them or disconnects.
	NegotiationTimeout time.Duration

	Clock  func() time.Time
	Logger *slog.Logger
}

const (
	defaultSendBuffer     = 256
	defaultMaxMessageSize = 1 << 20
)

// Hub is the central brain of the relay. It owns the identity registry, the
// community directory and the call table, and hands every new connection a
// Session bound to a fresh identity.
type Hub struct {
	peers  *Registry
	rooms  *Directory
	calls  *Calls
	router *Router

	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]*Client
	closing  bool
	wg       sync.WaitGroup
}

// NewHub creates a Hub ready to accept connections.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Hub{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[*Session]*Client),
	}

	h.peers = NewRegistry(opts.SendBuffer)
	h.router = &Router{peers: h.peers, logger: h.logger}
	h.rooms = newDirectory(h.router, h.timestamp, h.logger)
	h.router.rooms = h.rooms
	h.calls = newCalls(h.peers, h.router, opts.NegotiationTimeout, opts.Clock, h.logger)

	return h
}

// Registry returns the hub's identity registry.
func (h *Hub) Registry() *Registry { return h.peers }

// Directory returns the hub's community directory.
func (h *Hub) Directory() *Directory { return h.rooms }

// Calls returns the hub's call negotiation table.
func (h *Hub) Calls() *Calls { return h.calls }

// Router returns the hub's broadcast router.
func (h *Hub) Router() *Router { return h.router }

// Open registers a new identity and returns its session. The identity is
// the first message queued on the session's outbox.
func (h *Hub) Open() *Session {
	peer := h.peers.Register()
	s := &Session{
		hub:    h,
		peer:   peer,
		logger: h.logger.With("identity", peer.ID()),
	}

	h.mu.Lock()
	h.sessions[s] = nil
	h.mu.Unlock()

	peer.Deliver(protocol.NewMessage(protocol.UserAssigned{UserID: peer.ID().String()}))
	s.logger.Info("session opened", "connections", h.peers.Len())
	return s
}

// Serve binds an upgraded websocket connection to a new session and starts
// its read and write pumps. The connection is closed straight away once the
// hub is shutting down.
func (h *Hub) Serve(conn *websocket.Conn, addr string) {
	codec, err := protocol.CodecFor(conn.Subprotocol())
	if err != nil {
		h.logger.Warn("rejecting connection", "addr", addr, "error", err)
		conn.Close()
		return
	}

	s := h.Open()
	c := &Client{
		session: s,
		conn:    conn,
		codec:   codec,
		addr:    addr,
		maxSize: h.opts.MaxMessageSize,
		logger:  s.logger.With("addr", addr, "codec", codec.Name()),
	}
	if h.opts.RateLimit > 0 {
		burst := h.opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(h.opts.RateLimit, burst)
	}

	// Shutdown flips closing under h.mu, so a client is either in its
	// snapshot or closed here.
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		s.Close()
		conn.Close()
		return
	}
	h.sessions[s] = c
	h.wg.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		c.WritePump()
	}()
	go func() {
		defer h.wg.Done()
		c.ReadPump()
	}()
}

func (h *Hub) forget(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

func (h *Hub) timestamp() int64 {
	return h.opts.Clock().UnixMilli()
}

// RoomStats describes one live community.
type RoomStats struct {
	CommunityID string `json:"communityId"`
	Members     int    `json:"members"`
}

// Stats is a point-in-time view of the relay.
type Stats struct {
	Connections  int         `json:"connections"`
	Rooms        []RoomStats `json:"rooms"`
	Negotiations int         `json:"negotiations"`
}

// Stats reports live connection, community and negotiation counts.
func (h *Hub) Stats() Stats {
	sizes := h.rooms.Sizes()
	rooms := make([]RoomStats, 0, len(sizes))
	for room, n := range sizes {
		rooms = append(rooms, RoomStats{CommunityID: room, Members: n})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CommunityID < rooms[j].CommunityID })

	return Stats{
		Connections:  h.peers.Len(),
		Rooms:        rooms,
		Negotiations: h.calls.Len(),
	}
}

// Shutdown closes every connection, letting each session run its own
// teardown, and waits for the pumps to exit or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	sessions := make(map[*Session]*Client, len(h.sessions))
	for s, c := range h.sessions {
		sessions[s] = c
	}
	h.mu.Unlock()

	h.logger.Info("shutting down hub", "sessions", len(sessions))
	for s, c := range sessions {
		if c == nil {
			s.Close()
			continue
		}
		c.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out, some connections may still be open")
		return ctx.Err()
	}
}
