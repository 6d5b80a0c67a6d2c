package hap

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"sonnen-mqtt-bridge/internal/logger"
)

// CharacteristicView is one characteristic as read through its handler
type CharacteristicView struct {
	Value interface{} `json:"value"`
	Error string      `json:"error,omitempty"`
}

// ServiceView is the JSON form of a service
type ServiceView struct {
	Type            ServiceType                           `json:"type"`
	Name            string                                `json:"name,omitempty"`
	Subtype         string                                `json:"subtype,omitempty"`
	Primary         bool                                  `json:"primary,omitempty"`
	Characteristics map[Characteristic]CharacteristicView `json:"characteristics"`
}

// AccessoryView is the JSON form of an accessory
type AccessoryView struct {
	UUID        string        `json:"uuid"`
	DisplayName string        `json:"display_name"`
	Services    []ServiceView `json:"services"`
}

// View reads every characteristic of the accessory through the pull path
func (a *Accessory) View() AccessoryView {
	view := AccessoryView{UUID: a.UUID, DisplayName: a.DisplayName}
	for _, s := range a.Services() {
		sv := ServiceView{
			Type:            s.Type,
			Name:            s.Name,
			Subtype:         s.Subtype,
			Primary:         s.IsPrimary(),
			Characteristics: make(map[Characteristic]CharacteristicView),
		}
		for _, c := range s.Characteristics() {
			v, err := s.Value(c)
			cv := CharacteristicView{Value: v}
			if err != nil {
				cv.Error = err.Error()
			}
			sv.Characteristics[c] = cv
		}
		view.Services = append(view.Services, sv)
	}
	return view
}

// wsClient serializes writes to one connection
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Server exposes the registry over HTTP: a pull endpoint and a WebSocket push feed
type Server struct {
	registry *Registry
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*wsClient]bool

	cancel func()
	done   chan struct{}
}

// NewServer creates the server and starts forwarding registry updates to WebSocket clients
func NewServer(registry *Registry) *Server {
	s := &Server{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // LAN-only operator surface
			},
		},
		clients: make(map[*wsClient]bool),
		done:    make(chan struct{}),
	}

	updates, cancel := registry.Subscribe()
	s.cancel = cancel
	go s.forward(updates)
	return s
}

// Close stops forwarding and disconnects every WebSocket client
func (s *Server) Close() {
	s.cancel()
	<-s.done

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, c)
	}
}

func (s *Server) forward(updates <-chan Update) {
	defer close(s.done)
	for u := range updates {
		data, err := json.Marshal(u)
		if err != nil {
			logger.LogWarn("⚠️ Error marshaling update for %s: %v", u.DisplayName, err)
			continue
		}
		s.broadcast(data)
	}
}

func (s *Server) broadcast(data []byte) {
	s.clientsMu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			s.removeClient(c)
		}
	}
}

func (s *Server) addClient(c *wsClient) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()
}

func (s *Server) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
	_ = c.conn.Close()
}

// ClientCount returns the number of connected WebSocket clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// HandleAccessories serves GET /accessories
func (s *Server) HandleAccessories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accessories := s.registry.Accessories()
	views := make([]AccessoryView, 0, len(accessories))
	for _, a := range accessories {
		views = append(views, a.View())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		logger.LogError("Failed to encode accessories: %v", err)
	}
}

// HandleWebSocket serves GET /ws. The current state of every accessory is sent
// first, then one message per characteristic update.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.LogWarn("⚠️ WebSocket upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	for _, a := range s.registry.Accessories() {
		data, err := json.Marshal(a.View())
		if err != nil {
			continue
		}
		if err := client.write(data); err != nil {
			_ = conn.Close()
			return
		}
	}
	s.addClient(client)
	logger.LogDebug("🔌 WebSocket client connected from %s", r.RemoteAddr)

	// Keep connection alive until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.removeClient(client)
			return
		}
	}
}
