package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front door: it upgrades /{room}/{name} requests and
// hands the socket to the hub.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewServer creates a server for hub
func NewServer(hub *Hub, logger *log.Logger) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients are served from anywhere
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithPrefix("server"),
	}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /rooms", s.handleRooms)
	mux.HandleFunc("/", s.handleRoom)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and stops every room.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Stop()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.hub.Stop()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleRoom upgrades /{room}/{name} to a room socket
func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	roomID, name, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	name = strings.TrimSuffix(name, "/")

	if roomID == "" {
		http.Error(w, "expected room id", http.StatusUnprocessableEntity)
		return
	}
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "expected player name", http.StatusUnprocessableEntity)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "expected websocket", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "room", roomID, "error", err)
		return
	}

	conn := NewConnection(ws, s.logger)
	if err := s.hub.Connect(roomID, conn, name); err != nil {
		s.logger.Warn("Dropping connection", "room", roomID, "player", name, "error", err)
		_ = conn.Close()
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleRooms lists live rooms as JSON
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.hub.List(r.Context())); err != nil {
		s.logger.Error("Failed to encode room list", "error", err)
	}
}
