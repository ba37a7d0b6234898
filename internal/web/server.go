package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mec-fusion-go/internal/fusion"
	"mec-fusion-go/internal/obslog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the dashboard websocket feed, a JSON snapshot endpoint and
// the Prometheus /metrics handler.
type Server struct {
	Hub    *Hub
	engine Engine
	mux    *http.ServeMux
}

// Engine is the subset of *fusion.Engine the dashboard needs, kept as an
// interface so web does not otherwise depend on fusion internals.
type Engine interface {
	Snapshot() []fusion.OutputTrack
}

// NewServer wires handlers onto a fresh ServeMux. If metricsHandler is nil,
// /metrics serves the default Prometheus registry via promhttp.Handler().
func NewServer(engine Engine, metricsHandler http.Handler) *Server {
	s := &Server{
		Hub:    NewHub(),
		engine: engine,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.serveWs)
	s.mux.HandleFunc("/api/snapshot", s.serveSnapshot)
	if metricsHandler != nil {
		s.mux.Handle("/metrics", metricsHandler)
	} else {
		s.mux.Handle("/metrics", promhttp.Handler())
	}
	return s
}

// Start runs the Hub loop and blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.Hub.Run()
	obslog.L().Info("web: listening on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obslog.L().Warn("web: websocket upgrade failed: %v", err)
		return
	}
	c := &client{hub: s.Hub, conn: conn, send: make(chan []byte, 8)}
	s.Hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.engine.Snapshot())
}

// PublishLoop periodically broadcasts the engine snapshot to connected
// dashboard clients until stop is closed.
func (s *Server) PublishLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b, err := json.Marshal(s.engine.Snapshot())
			if err != nil {
				continue
			}
			s.Hub.Broadcast(b)
		}
	}
}
