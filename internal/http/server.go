package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"sonnen-mqtt-bridge/internal/logger"
)

const indexPage = `<html>
<head><title>sonnen MQTT Bridge</title></head>
<body>
<h1>sonnen MQTT Bridge</h1>
<ul>
<li><a href="/health">Health Check</a></li>
<li><a href="/metrics">Metrics</a></li>
<li><a href="/accessories">Accessories</a></li>
<li>/ws - live characteristic updates (WebSocket)</li>
</ul>
</body>
</html>`

// Handlers wired into the operator server. Nil handlers are not mounted.
type Handlers struct {
	Health      http.Handler
	Metrics     http.Handler
	Accessories http.HandlerFunc
	WebSocket   http.HandlerFunc
}

// Server is the operator HTTP server
type Server struct {
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server on port with its own mux
func NewServer(port int, handlers Handlers) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewMux(handlers),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			// no WriteTimeout: it would cut long-lived WebSocket connections
			IdleTimeout: 60 * time.Second,
		},
	}
}

// NewMux builds the operator routes
func NewMux(handlers Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	if handlers.Health != nil {
		mux.Handle("/health", handlers.Health)
	}
	if handlers.Metrics != nil {
		mux.Handle("/metrics", handlers.Metrics)
	}
	if handlers.Accessories != nil {
		mux.HandleFunc("/accessories", handlers.Accessories)
	}
	if handlers.WebSocket != nil {
		mux.HandleFunc("/ws", handlers.WebSocket)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, indexPage)
	})
	return mux
}

// Start binds the port and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.LogInfo("🌐 HTTP server listening on %s", ln.Addr())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError("HTTP server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
