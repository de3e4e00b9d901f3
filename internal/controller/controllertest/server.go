// Package controllertest runs an in-process fake controller for tests. It
// serves the REST endpoints from canned data and accepts push-channel
// connections that tests can write to or drop.
package controllertest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/five82/meshwatch/internal/controller"
)

// Server is a fake controller backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	status   controller.SystemStatus
	devices  []controller.Device
	logs     []controller.DeviceLog
	motion   []controller.MotionEvent
	failures map[string]int
	hits     map[string]int
	queries  map[string][]string
	commands []controller.CommandRequest
	requests []string
	gates    map[string]chan struct{}

	upgrader websocket.Upgrader
	wsMu     sync.Mutex
	conns    []*websocket.Conn
	accepted int
	mute     bool
}

// New starts a fake controller and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		failures: make(map[string]int),
		hits:     make(map[string]int),
		queries:  make(map[string][]string),
		gates:    make(map[string]chan struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Get("/v1/status", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, func() any { return s.status })
		})
		api.Get("/v1/devices", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, func() any { return s.devices })
		})
		api.Get("/logs", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, func() any { return filterLogs(s.logs, r.URL.Query().Get("device_id")) })
		})
		api.Get("/motion", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, func() any { return s.motion })
		})
		api.Post("/v1/command", s.handleCommand)
	})
	r.Get("/ws", s.handleWS)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Close releases held requests, drops every push connection and stops the
// HTTP server.
func (s *Server) Close() {
	s.mu.Lock()
	for path, gate := range s.gates {
		delete(s.gates, path)
		close(gate)
	}
	s.mu.Unlock()
	s.DropConnections()
	s.Server.Close()
}

// SetStatus replaces the /api/v1/status payload.
func (s *Server) SetStatus(status controller.SystemStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetDevices replaces the /api/v1/devices payload.
func (s *Server) SetDevices(devices []controller.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append([]controller.Device(nil), devices...)
}

// SetLogs replaces the /api/logs payload.
func (s *Server) SetLogs(logs []controller.DeviceLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append([]controller.DeviceLog(nil), logs...)
}

// SetMotion replaces the /api/motion payload.
func (s *Server) SetMotion(events []controller.MotionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motion = append([]controller.MotionEvent(nil), events...)
}

// Fail makes path answer with code until Fail(path, 0) is called.
func (s *Server) Fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = code
}

// Hold blocks requests to path until the returned release func is called.
func (s *Server) Hold(path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[path] = gate
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gates[path] == gate {
			delete(s.gates, path)
			close(gate)
		}
	}
}

// Hits reports how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Queries returns the raw query strings seen for path, oldest first.
func (s *Server) Queries(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries[path]...)
}

// Commands returns every decoded command body, oldest first.
func (s *Server) Commands() []controller.CommandRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]controller.CommandRequest(nil), s.commands...)
}

// RequestIDs returns the X-Request-ID headers seen on commands.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Accepted reports how many push connections have been upgraded so far.
func (s *Server) Accepted() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.accepted
}

// WaitAccepted polls until at least n push connections were accepted.
func (s *Server) WaitAccepted(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Accepted() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Accepted() >= n
}

// Push writes v as a JSON text frame to every open push connection.
func (s *Server) Push(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.PushRaw(raw)
}

// PushRaw writes raw bytes as a text frame to every open push connection.
func (s *Server) PushRaw(raw []byte) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return err
		}
	}
	return nil
}

// DropConnections closes every push connection from the server side.
func (s *Server) DropConnections() {
	s.wsMu.Lock()
	conns := s.conns
	s.conns = nil
	s.wsMu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, payload func() any) {
	path := r.URL.Path
	s.mu.Lock()
	s.hits[path]++
	s.queries[path] = append(s.queries[path], r.URL.RawQuery)
	gate := s.gates[path]
	code := s.failures[path]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if code != 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}

	s.mu.Lock()
	body, err := json.Marshal(payload())
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req controller.CommandRequest
	decodeErr := json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.requests = append(s.requests, r.Header.Get("X-Request-ID"))
	if decodeErr == nil {
		s.commands = append(s.commands, req)
	}
	code := s.failures[r.URL.Path]
	s.mu.Unlock()

	if decodeErr != nil {
		http.Error(w, decodeErr.Error(), http.StatusBadRequest)
		return
	}
	if code != 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "queued", "command": req.Command})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.wsMu.Lock()
	s.conns = append(s.conns, conn)
	s.accepted++
	s.wsMu.Unlock()

	conn.SetPingHandler(func(data string) error {
		if s.muted() {
			return nil
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	// Drain until the client goes away so close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.forget(conn)
			return
		}
	}
}

// Mute stops answering pings on every push connection, current and future,
// the way a controller that lost power without closing its sockets behaves.
func (s *Server) Mute(on bool) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	s.mute = on
}

func (s *Server) muted() bool {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.mute
}

func (s *Server) forget(conn *websocket.Conn) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for i, c := range s.conns {
		if c == conn {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
	_ = conn.Close()
}

func filterLogs(logs []controller.DeviceLog, deviceID string) []controller.DeviceLog {
	if deviceID == "" {
		return logs
	}
	out := make([]controller.DeviceLog, 0, len(logs))
	for _, l := range logs {
		if l.DeviceID == deviceID {
			out = append(out, l)
		}
	}
	return out
}

// StatusPath and friends name the fake's routes for Hits and Fail.
const (
	StatusPath  = "/api/v1/status"
	DevicesPath = "/api/v1/devices"
	CommandPath = "/api/v1/command"
	LogsPath    = "/api/logs"
	MotionPath  = "/api/motion"
	PushPath    = "/ws"
)
