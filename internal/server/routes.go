package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Routes returns the relay's HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("/ws", s.ServeWs)
	return mux
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay is healthy."))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.hub.Stats()); err != nil {
		s.logger.Error("writing stats", "error", err)
	}
}

// ServeWs upgrades the request to a websocket and hands the connection to
// the hub. The subprotocol picks the wire codec; clients that offer none get
// JSON.
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Websocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "addr", r.RemoteAddr, "error", err)
		return
	}

	s.hub.Serve(conn, r.RemoteAddr)
}

func newUpgrader(origins *originPolicy) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		Subprotocols:    protocol.Subprotocols,
		CheckOrigin:     origins.check,
	}
}
