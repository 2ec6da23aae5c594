package variable

import (
	"sync"
	"time"
)

// Getter is a remote variable's read closure. Called on every read; must not
// block.
type Getter func() Value

// Variable is either local (holds its own value) or remote (delegates to a
// Getter). Exactly one of the two is set.
type Variable struct {
	name   string
	local  bool
	value  Value
	getter Getter
}

func NewLocal(name string, initial Value) *Variable {
	return &Variable{name: name, local: true, value: initial}
}

func NewRemote(name string, getter Getter) *Variable {
	return &Variable{name: name, getter: getter}
}

func (v *Variable) Name() string { return v.name }

func (v *Variable) Get() Value {
	if v.local {
		return v.value
	}
	return v.getter()
}

// Set mutates a local variable. No-op on a remote variable: remote variables
// are set by their owning collaborator, never by the event loop directly.
func (v *Variable) Set(value Value) {
	if v.local {
		v.value = value
	}
}

// Store is the read-mostly, named, typed collection consulted by
// conditions. All mutation happens on the event thread;
// reads from action threads only ever go through a Getter closure.
type Store struct {
	mu      sync.RWMutex
	vars    map[string]*Variable
	aliases map[string]string

	lastTriggerID   string
	lastTriggerTime time.Time
}

func NewStore() *Store {
	s := &Store{
		vars:    make(map[string]*Variable),
		aliases: make(map[string]string),
	}
	s.registerBuiltins()
	return s
}

func (s *Store) registerBuiltins() {
	s.Register(NewLocal("device_name", String("")))
	s.Register(NewLocal("fingers", Number(0)))
	s.Register(NewLocal("keyboard_modifiers", Flags(0)))
	s.Register(NewLocal("cursor_shape", Enum("")))
	s.Register(NewLocal("pointer_position_screen_percentage", Point(0, 0)))
	s.Register(NewLocal("pointer_position_window_percentage", Point(0, 0)))
	s.Register(NewLocal("window_class", String("")))
	s.Register(NewLocal("window_fullscreen", Bool(false)))
	s.Register(NewLocal("window_id", String("")))
	s.Register(NewLocal("window_maximized", Bool(false)))
	s.Register(NewLocal("window_name", String("")))
	s.Register(NewLocal("window_title", String("")))

	s.Register(NewRemote("last_trigger_id", func() Value {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return String(s.lastTriggerID)
	}))
	s.Register(NewRemote("time_since_last_trigger", func() Value {
		s.mu.RLock()
		t := s.lastTriggerTime
		s.mu.RUnlock()
		if t.IsZero() {
			return None()
		}
		return Number(float64(time.Since(t).Milliseconds()))
	}))

	// window_under_pointer_* aliases the corresponding window_* variable.
	for _, name := range []string{"class", "fullscreen", "id", "maximized", "name", "title"} {
		s.Alias("window_under_pointer_"+name, "window_"+name)
	}
}

func (s *Store) Register(v *Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[v.name] = v
}

// Alias makes `name` resolve to whatever `target` currently resolves to.
func (s *Store) Alias(name, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[name] = target
}

// Get resolves a variable by name, following at most one alias hop.
// Returns (value, ok); ok is false for an unknown name, which callers
// treat as "empty".
func (s *Store) Get(name string) (Value, bool) {
	s.mu.RLock()
	if target, ok := s.aliases[name]; ok {
		name = target
	}
	v, ok := s.vars[name]
	s.mu.RUnlock()
	if !ok {
		return None(), false
	}
	return v.Get(), true
}

// Set mutates a local variable in place; no-op if the name is unknown or
// remote.
func (s *Store) Set(name string, value Value) {
	s.mu.RLock()
	v, ok := s.vars[name]
	s.mu.RUnlock()
	if ok {
		v.Set(value)
	}
}

// SetLastTrigger records the most recently fully-activated trigger, backing
// last_trigger_id and time_since_last_trigger. Called by the handler chain
// for triggers with set_last_trigger set.
func (s *Store) SetLastTrigger(id string) {
	s.mu.Lock()
	s.lastTriggerID = id
	s.lastTriggerTime = time.Now()
	s.mu.Unlock()
}
