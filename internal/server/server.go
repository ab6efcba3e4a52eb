package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/playone/oneserver/internal/game"
)

// Server accepts WebSocket connections and routes room traffic between
// clients and their sessions. It implements game.Fanout: sessions push
// events here and the server resolves which connections receive them.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	registry    *Registry
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRegistry wires the room registry. Must be called before Start; the
// registry is constructed second because it needs the server as its
// fanout.
func (s *Server) SetRegistry(registry *Registry) {
	s.registry = registry
}

// Handler returns the HTTP handler serving the WebSocket and health
// endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Serve runs the server on an existing listener, for callers that need
// the bound address before starting (random ports in demos and tests).
func (s *Server) Serve(l net.Listener) error {
	go s.run()

	s.logger.Info("Starting WebSocket server", "addr", l.Addr().String())
	return http.Serve(l, s.Handler())
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()

	if s.registry != nil {
		s.registry.CloseAll()
	}

	// Close all connections
	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()

			if ok {
				// A dropped connection counts as leaving the room; the
				// session substitutes a bot mid-game.
				userID := conn.GetUser()
				if userID != "" && s.registry != nil {
					if _, err := s.registry.LeaveRoom(userID); err != nil {
						s.logger.Error("Cleanup after disconnect failed", "user", userID, "error", err)
					}
				}
				_ = conn.Close() // Ignore close errors during unregistration
				s.logger.Info("Client disconnected", "user", userID, "total", total)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.registry)
	s.register <- client
	client.Start()

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// ---- game.Fanout ----

// roomOfConn resolves the room a connection's user currently sits in.
func (s *Server) roomOfConn(conn *Connection) string {
	userID := conn.GetUser()
	if userID == "" || s.registry == nil {
		return ""
	}
	s.registry.mu.RLock()
	code := s.registry.users[userID]
	s.registry.mu.RUnlock()
	return code
}

// Broadcast sends an event to every connection seated in a room.
func (s *Server) Broadcast(roomCode string, event game.EventType, data any) {
	msg, err := NewMessage(MessageType(event), data)
	if err != nil {
		s.logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if s.roomOfConn(conn) == roomCode {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send event to client", "error", err, "user", conn.GetUser())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted event", "room", roomCode, "type", event, "recipients", count)
}

// ToSeat sends an event to the connection holding a specific seat.
func (s *Server) ToSeat(roomCode, seatID string, event game.EventType, data any) {
	msg, err := NewMessage(MessageType(event), data)
	if err != nil {
		s.logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetSeat() == seatID && s.roomOfConn(conn) == roomCode {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send event to seat", "error", err, "seat", seatID)
			}
			return
		}
	}
}

// ToUser sends an event to a user's connection wherever they are.
func (s *Server) ToUser(userID string, event game.EventType, data any) {
	msg, err := NewMessage(MessageType(event), data)
	if err != nil {
		s.logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetUser() == userID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send event to user", "error", err, "user", userID)
			}
			return
		}
	}
}

// ConnectedUsers returns the authenticated users currently connected.
func (s *Server) ConnectedUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []string
	for conn := range s.connections {
		if userID := conn.GetUser(); userID != "" {
			users = append(users, userID)
		}
	}

	return users
}
