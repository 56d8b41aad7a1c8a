package ws

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/schedule"
)

// Animator is what the network side needs from the animator.
type Animator interface {
	Submit(cmd animator.Command) error
	Snapshot() []animator.Report
	Stats() animator.Stats
}

// Schedules lists installed schedules and removes them on request.
type Schedules interface {
	Entries() []schedule.Entry
	Remove(id int) error
}

type Options struct {
	Animator  Animator
	Resolver  command.Resolver
	Diags     *diag.Log
	Schedules Schedules // optional
	Driver    string
	// Persist saves the schedule list after a change; optional.
	Persist func() error

	// Control commands allowed per second per connection, and burst.
	RatePerSec float64
	Burst      int
	// StatusInterval is the /status push period.
	StatusInterval time.Duration
	// AllowedOrigins empty means any origin.
	AllowedOrigins []string
}

type State struct {
	opts      Options
	upgrader  websocket.Upgrader
	startTime time.Time
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*websocket.Conn
	closed   bool
	handlers sync.WaitGroup

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewState(o Options) *State {
	if o.StatusInterval <= 0 {
		o.StatusInterval = 200 * time.Millisecond
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 10
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Diags == nil {
		o.Diags = diag.NewLog(0)
	}
	s := &State{
		opts:      o,
		startTime: time.Now(),
		log:       log.With().Str("component", "ws").Logger(),
		sessions:  map[string]*websocket.Conn{},
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *State) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	s.log.Warn().Str("origin", origin).Msg("websocket origin blocked")
	return false
}

// Handler routes /status, /control and /health.
func (s *State) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.HandleStatusWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

// openSession registers conn. After Close it refuses, closing conn.
func (s *State) openSession(endpoint string, conn *websocket.Conn) (string, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return "", false
	}
	id := uuid.New().String()
	s.sessions[id] = conn
	s.handlers.Add(1)
	s.mu.Unlock()
	s.log.Debug().Str("session", id).Str("endpoint", endpoint).Msg("session open")
	return id, true
}

func (s *State) closeSession(id string, conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	conn.Close()
	s.handlers.Done()
	s.log.Debug().Str("session", id).Msg("session closed")
}

// Sessions counts open websocket sessions.
func (s *State) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close hangs up every websocket session, refuses new ones and waits for
// the handlers to return. The HTTP server does not track hijacked
// connections, so call it after Shutdown.
func (s *State) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	s.handlers.Wait()
	return nil
}

// LED is the wire form of an animator report.
type LED struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	Colour   string `json:"colour"`
	PeriodMs int64  `json:"period_ms,omitempty"`
}

func leds(reports []animator.Report) []LED {
	out := make([]LED, len(reports))
	for i, r := range reports {
		out[i] = LED{
			Index:    r.Index,
			Name:     r.Name,
			Mode:     r.Mode.String(),
			Colour:   r.Colour.String(),
			PeriodMs: r.Period.Milliseconds(),
		}
	}
	return out
}

// Message is every server-to-client frame.
type Message struct {
	Type    string           `json:"type"` // hello | status | diag | result
	Session string           `json:"session,omitempty"`
	LEDs    []LED            `json:"leds,omitempty"`
	Stats   *animator.Stats  `json:"stats,omitempty"`
	Diag    *diag.Diagnostic `json:"diag,omitempty"`
	Result  *Result          `json:"result,omitempty"`
	Usage   string           `json:"usage,omitempty"`

	Schedules []schedule.Entry `json:"schedules,omitempty"`
}

// HandleStatusWS streams LED snapshots every StatusInterval and
// diagnostics as they happen. Client messages are ignored.
func (s *State) HandleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("status upgrade")
		return
	}
	id, ok := s.openSession("status", conn)
	if !ok {
		return
	}
	defer s.closeSession(id, conn)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	diags, cancel := s.opts.Diags.Subscribe(16)
	defer cancel()
	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	if s.write(conn, Message{Type: "hello", Session: id}) != nil {
		return
	}
	for {
		var m Message
		select {
		case <-gone:
			return
		case d := <-diags:
			m = Message{Type: "diag", Diag: &d}
		case <-ticker.C:
			st := s.opts.Animator.Stats()
			m = Message{Type: "status", LEDs: leds(s.opts.Animator.Snapshot()), Stats: &st}
		}
		if err := s.write(conn, m); err != nil {
			s.log.Debug().Err(err).Str("session", id).Msg("write status")
			return
		}
	}
}

func (s *State) write(conn *websocket.Conn, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// HandleHealth reports liveness and counters as JSON.
func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s":    time.Since(s.startTime).Seconds(),
		"driver":      s.opts.Driver,
		"leds":        len(s.opts.Animator.Snapshot()),
		"stats":       s.opts.Animator.Stats(),
		"sessions":    s.Sessions(),
		"diagnostics": s.opts.Diags.Recent(),
	}
	if s.opts.Schedules != nil {
		resp["schedules"] = s.opts.Schedules.Entries()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
