// Package store holds one session state per client and runs intents against
// it: one at a time per session, with simulated latency for the intents that
// model a network round trip.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/events"
	"github.com/Eblazecode/Agrolinkernew/internal/state"
	pkgstore "github.com/Eblazecode/Agrolinkernew/pkg/store"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Delays are the simulated round-trip times of the delayed intents.
type Delays struct {
	Login    time.Duration `yaml:"login" json:"login"`
	Register time.Duration `yaml:"register" json:"register"`
	Checkout time.Duration `yaml:"checkout" json:"checkout"`
}

// DefaultDelays mirror the demo application.
var DefaultDelays = Delays{Login: time.Second, Register: time.Second, Checkout: 2 * time.Second}

func (d Delays) For(in state.Intent) time.Duration {
	switch in.(type) {
	case state.Login:
		return d.Login
	case state.Register:
		return d.Register
	case state.Checkout:
		return d.Checkout
	}
	return 0
}

// Recorder receives store metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	Intent(kind, outcome string)
	Event(typ string)
	SetSessions(n int)
}

type nopRecorder struct{}

func (nopRecorder) Intent(string, string) {}
func (nopRecorder) Event(string)          {}
func (nopRecorder) SetSessions(int)       {}

// Config wires a MemoryStore. Catalog is required.
type Config struct {
	Catalog catalog.Repository
	Clock   *pkgstore.Clock
	Delays  Delays
	// Sleep waits out a simulated delay. Defaults to Clock.Sleep.
	Sleep           func(time.Duration)
	StrictPasswords bool
	Publisher       events.Publisher
	Recorder        Recorder
	Logger          *slog.Logger
}

// Session is one client's state plus its intent serialisation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu    sync.Mutex
	busy  atomic.Bool
	state atomic.Pointer[state.State]
}

// State returns the last committed state.
func (s *Session) State() state.State {
	return *s.state.Load()
}

// MemoryStore is the session registry.
type MemoryStore struct {
	catalog   catalog.Repository
	clock     *pkgstore.Clock
	sleep     func(time.Duration)
	delays    atomic.Pointer[Delays]
	strict    bool
	publisher events.Publisher
	rec       Recorder
	logger    *slog.Logger

	sessions *pkgstore.Store[*Session]
}

func New(cfg Config) (*MemoryStore, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("store: catalog is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = pkgstore.NewClock()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = cfg.Clock.Sleep
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &MemoryStore{
		catalog:   cfg.Catalog,
		clock:     cfg.Clock,
		sleep:     cfg.Sleep,
		strict:    cfg.StrictPasswords,
		publisher: cfg.Publisher,
		rec:       cfg.Recorder,
		logger:    cfg.Logger,
		sessions:  pkgstore.New[*Session]("sess"),
	}
	m.delays.Store(&cfg.Delays)
	return m, nil
}

// Clock returns the store's time source.
func (m *MemoryStore) Clock() *pkgstore.Clock { return m.clock }

// Catalog returns the injected catalog.
func (m *MemoryStore) Catalog() catalog.Repository { return m.catalog }

func (m *MemoryStore) Delays() Delays { return *m.delays.Load() }

// SetDelays replaces the simulated delays for subsequent intents.
func (m *MemoryStore) SetDelays(d Delays) { m.delays.Store(&d) }

// Create starts an anonymous session.
func (m *MemoryStore) Create() *Session {
	sess := &Session{ID: uuid.NewString(), CreatedAt: m.clock.Now()}
	sess.state.Store(&state.State{})
	m.sessions.Set(sess.ID, sess)
	m.rec.SetSessions(m.sessions.Count())
	m.logger.Debug("session created", "session_id", sess.ID)
	return sess
}

// Get returns the session with id.
func (m *MemoryStore) Get(id string) (*Session, error) {
	sess, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// State returns a copy of the committed state of session id.
func (m *MemoryStore) State(id string) (state.State, error) {
	sess, err := m.Get(id)
	if err != nil {
		return state.State{}, err
	}
	return sess.State().Clone(), nil
}

// Delete drops a session.
func (m *MemoryStore) Delete(id string) bool {
	ok := m.sessions.Delete(id)
	m.rec.SetSessions(m.sessions.Count())
	return ok
}

// Sessions lists live sessions in creation order.
func (m *MemoryStore) Sessions() []*Session {
	return m.sessions.List()
}

// Dispatch runs in against session id and commits the result with a single
// pointer swap. Intents of one session never interleave. A delayed intent is
// validated first, then waits out its simulated delay, then commits; any
// intent submitted to the session meanwhile is rejected with ErrBusy.
func (m *MemoryStore) Dispatch(ctx context.Context, id string, in state.Intent) (state.State, []state.Event, error) {
	sess, err := m.Get(id)
	if err != nil {
		return state.State{}, nil, err
	}
	if in == nil {
		return sess.State(), nil, state.Reject(state.ErrValidationFailed, map[string]any{"intent": "missing"})
	}
	kind := in.Kind()

	if state.Delayed(in) {
		if !sess.busy.CompareAndSwap(false, true) {
			return m.busy(sess, kind)
		}
		defer sess.busy.Store(false)
		if _, _, err := state.Apply(sess.State(), in, m.env()); err != nil {
			m.rec.Intent(kind, "rejected")
			return sess.State(), nil, err
		}
		m.sleep(m.Delays().For(in))
	}

	sess.mu.Lock()
	if !state.Delayed(in) && sess.busy.Load() {
		sess.mu.Unlock()
		return m.busy(sess, kind)
	}
	cur := sess.State()
	next, evts, err := state.Apply(cur, in, m.env())
	if err != nil {
		sess.mu.Unlock()
		m.rec.Intent(kind, "rejected")
		return cur, nil, err
	}
	sess.state.Store(&next)
	sess.mu.Unlock()

	m.rec.Intent(kind, "ok")
	m.publish(ctx, sess.ID, evts)
	return next, evts, nil
}

func (m *MemoryStore) busy(sess *Session, kind string) (state.State, []state.Event, error) {
	m.rec.Intent(kind, "busy")
	return sess.State(), nil, state.Reject(state.ErrBusy, map[string]any{"intent": kind})
}

func (m *MemoryStore) publish(ctx context.Context, id string, evts []state.Event) {
	if len(evts) == 0 {
		return
	}
	for _, e := range evts {
		m.rec.Event(e.Type)
	}
	if err := m.publisher.Publish(ctx, id, evts); err != nil {
		m.logger.Warn("event publish failed", "session_id", id, "events", len(evts), "err", err)
	}
}

func (m *MemoryStore) env() state.Env {
	return state.Env{Now: m.clock.Now(), Catalog: m.catalog, StrictPasswords: m.strict}
}

// Replace overwrites the state of session id, creating the session if
// needed. It is the admin seeding hook.
func (m *MemoryStore) Replace(id string, st state.State) *Session {
	st = st.Clone()
	sess, ok := m.sessions.Get(id)
	if !ok {
		sess = &Session{ID: id, CreatedAt: m.clock.Now()}
		sess.state.Store(&st)
		m.sessions.Set(id, sess)
		m.rec.SetSessions(m.sessions.Count())
		return sess
	}
	sess.mu.Lock()
	sess.state.Store(&st)
	sess.mu.Unlock()
	return sess
}

// Snapshot returns every session's committed state keyed by session id.
func (m *MemoryStore) Snapshot() map[string]state.State {
	out := make(map[string]state.State, m.sessions.Count())
	for _, sess := range m.sessions.List() {
		out[sess.ID] = sess.State().Clone()
	}
	return out
}

// LoadSnapshot replaces all sessions with snap.
func (m *MemoryStore) LoadSnapshot(snap map[string]state.State) {
	m.sessions.Reset()
	for id, st := range snap {
		m.Replace(id, st)
	}
	m.rec.SetSessions(m.sessions.Count())
}

// Reset drops every session and rewinds the clock.
func (m *MemoryStore) Reset() {
	m.sessions.Reset()
	m.clock.Reset()
	m.rec.SetSessions(0)
}
