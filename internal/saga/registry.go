package saga

import (
	"context"
	"fmt"
	"sort"
)

// HandlerFunc handles one envelope. Returning nil acknowledges it.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Registry maps each event type to exactly one handler. It is built once at
// startup; lookups never fall back to anything implicit.
type Registry struct {
	component string
	handlers  map[EventType]HandlerFunc
	ignored   map[EventType]struct{}
}

func NewRegistry(component string) *Registry {
	return &Registry{
		component: component,
		handlers:  map[EventType]HandlerFunc{},
		ignored:   map[EventType]struct{}{},
	}
}

// Register binds t to h. Binding a type twice is a wiring bug and panics.
func (r *Registry) Register(t EventType, h HandlerFunc) *Registry {
	if _, dup := r.handlers[t]; dup {
		panic(fmt.Sprintf("saga: %s: duplicate handler for %s", r.component, t))
	}
	if _, ign := r.ignored[t]; ign {
		panic(fmt.Sprintf("saga: %s: %s is both handled and ignored", r.component, t))
	}
	r.handlers[t] = h
	return r
}

// Ignore declares event types this component sees on a shared topic but
// deliberately does not react to.
func (r *Registry) Ignore(types ...EventType) *Registry {
	for _, t := range types {
		if _, ok := r.handlers[t]; ok {
			panic(fmt.Sprintf("saga: %s: %s is both handled and ignored", r.component, t))
		}
		r.ignored[t] = struct{}{}
	}
	return r
}

func (r *Registry) Component() string { return r.component }

// Handles lists the registered types, sorted.
func (r *Registry) Handles() []EventType {
	out := make([]EventType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deliver routes env to its handler. Ignored types are acknowledged,
// anything else fails with ErrNoHandler.
func (r *Registry) Deliver(ctx context.Context, env Envelope) error {
	if h, ok := r.handlers[env.Type]; ok {
		return h(ctx, env)
	}
	if _, ok := r.ignored[env.Type]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s received %s (saga %s)", ErrNoHandler, r.component, env.Type, env.SagaID)
}
