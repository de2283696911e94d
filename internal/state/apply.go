package state

import (
	"fmt"
	"time"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
)

// Env is what a transition may consult besides the state itself.
type Env struct {
	Now     time.Time
	Catalog catalog.Repository
	// StrictPasswords makes login compare against the catalog password
	// instead of accepting any non-empty one.
	StrictPasswords bool
}

// Event is a domain fact produced by a successful transition.
type Event struct {
	Type string         `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// Intent is a request to change session state. The set of intents is closed:
// the session, wallet, cart, feed and services files define them all.
type Intent interface {
	Kind() string
	apply(t *tx) error
}

// Delayed reports whether the intent simulates a network round trip before
// it takes effect.
func Delayed(in Intent) bool {
	switch in.(type) {
	case Login, Register, Checkout:
		return true
	}
	return false
}

// Apply runs in against s. On success it returns the next state and the
// events the transition produced; on failure it returns s untouched and an
// error wrapping one of the Err* kinds.
func Apply(s State, in Intent, env Env) (State, []Event, error) {
	if in == nil {
		return s, nil, invalid("intent")
	}
	if env.Catalog == nil {
		return s, nil, fmt.Errorf("state: apply %s: nil catalog", in.Kind())
	}
	t := &tx{s: s.Clone(), env: env}
	if err := in.apply(t); err != nil {
		return s, nil, err
	}
	return t.s, t.events, nil
}

// tx is the scratch space of one transition.
type tx struct {
	s      State
	env    Env
	events []Event
}

func (t *tx) now() time.Time { return t.env.Now }

func (t *tx) nextID(prefix string) string {
	t.s.Seq++
	return fmt.Sprintf("%s_%06d", prefix, t.s.Seq)
}

func (t *tx) emit(typ string, data map[string]any) {
	t.events = append(t.events, Event{Type: typ, At: t.now(), Data: data})
}

func (t *tx) requireUser() error {
	if t.s.User == nil {
		return fail(ErrNotAuthenticated, nil)
	}
	return nil
}

func (t *tx) userID() string {
	if t.s.User == nil {
		return ""
	}
	return t.s.User.ID
}
