package sizing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StatusServer exposes the state of a sizing run over HTTP: a health
// endpoint, a status snapshot and a websocket that streams build/solve
// progress. Long builds (hundreds of thousands of constraints) are the
// reason this exists.
type StatusServer struct {
	server    *http.Server
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map
	broadcast chan []byte
	done      chan struct{}

	mu       sync.RWMutex
	progress Progress
	result   *Result
}

// NewStatusServer creates the server, or nil when port <= 0 (disabled).
func NewStatusServer(port int) *StatusServer {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	s := &StatusServer{
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/api/health", s.healthHandler)
	mux.HandleFunc("/api/status", s.statusHandler)
	mux.HandleFunc("/api/ws", s.wsHandler)

	return s
}

// Start begins serving. Safe to call on a nil (disabled) server.
func (s *StatusServer) Start() {
	if s == nil {
		return
	}

	go s.handleBroadcasts()

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Status server error: %v\n", err)
		}
	}()
}

// Stop gracefully shuts the server down. Safe on a nil server.
func (s *StatusServer) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	close(s.done)

	s.clients.Range(func(key, value any) bool {
		if conn, ok := key.(*websocket.Conn); ok {
			conn.Close()
		}
		return true
	})

	return s.server.Shutdown(ctx)
}

// ReportProgress records the latest phase and streams it to connected
// websocket clients. Usable as a ProgressFunc; safe on a nil server.
func (s *StatusServer) ReportProgress(p Progress) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()

	message, err := json.Marshal(map[string]any{
		"type":     "progress",
		"progress": p,
	})
	if err != nil {
		return
	}
	select {
	case s.broadcast <- message:
	default:
		// drop updates rather than block the build
	}
}

// SetResult records the final result for status queries. Safe on a nil
// server.
func (s *StatusServer) SetResult(r *Result) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.result = r
	s.mu.Unlock()
}

func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *StatusServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.buildStatusData()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *StatusServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("WebSocket upgrade error: %v\n", err)
		return
	}

	s.clients.Store(conn, true)

	// send current state immediately
	if err := conn.WriteJSON(s.buildStatusData()); err != nil {
		fmt.Printf("Failed to send initial data: %v\n", err)
	}

	defer func() {
		s.clients.Delete(conn)
		conn.Close()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("WebSocket error: %v\n", err)
			}
			break
		}
	}
}

func (s *StatusServer) handleBroadcasts() {
	for {
		select {
		case message := <-s.broadcast:
			s.clients.Range(func(key, value any) bool {
				conn, ok := key.(*websocket.Conn)
				if !ok {
					return true
				}

				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					s.clients.Delete(conn)
				}
				return true
			})
		case <-s.done:
			return
		}
	}
}

func (s *StatusServer) buildStatusData() map[string]any {
	s.mu.RLock()
	progress := s.progress
	result := s.result
	s.mu.RUnlock()

	data := map[string]any{
		"type":      "status",
		"progress":  progress,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
	}
	if result != nil {
		data["result"] = result
	}
	return data
}
