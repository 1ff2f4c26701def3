// Package strategy defines the worker-side trading strategy contract and
// an explicit registry for looking strategies up by name. Grounded in the
// source project's client/foreverbull/algorithm.py Algorithm base class,
// adapted to an explicit-registration Go interface rather than a
// decorator-populated implicit global.
package strategy

import (
	"fmt"
	"sync"

	"github.com/ndrandal/backtestsim/model"
)

// Database is the read-only handle a strategy uses to look up bars and
// positions while deciding what to do with the current bar.
type Database interface {
	StockData(instrument string) ([]model.Bar, error)
	GetPosition(instrument string) (model.Position, bool)
}

// Strategy is invoked once for each bar dispatched to its worker. It
// returns a non-nil *model.Order to submit a new order, or nil to do
// nothing this bar.
type Strategy interface {
	OnBar(bar model.Bar, db Database, params map[string]string) (*model.Order, error)
}

// Func adapts a plain function to the Strategy interface.
type Func func(bar model.Bar, db Database, params map[string]string) (*model.Order, error)

// OnBar implements Strategy.
func (f Func) OnBar(bar model.Bar, db Database, params map[string]string) (*model.Order, error) {
	return f(bar, db, params)
}

// Registry is an explicit name -> Strategy lookup table. Strategies are
// registered by the worker's entrypoint before it configures, never
// discovered via package-level side effects.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Strategy
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Strategy)}
}

// Register adds a strategy under name, panicking if name is already taken
// — a duplicate registration is a programming error, fatal at startup.
func (r *Registry) Register(name string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		panic(fmt.Sprintf("strategy: %q already registered", name))
	}
	r.items[name] = s
}

// Lookup returns the strategy registered under name, if any.
func (r *Registry) Lookup(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[name]
	return s, ok
}

// Names lists every registered strategy name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	return names
}
