// Package client is the browser-side runtime model: the page-wide registry
// of hydrated component instances and the handles they use to talk over the
// event bus.
//
// The page environment is abstracted behind Document so the runtime can be
// driven from a WebAssembly host or from tests.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pthm/blueprint/lib/bus"
)

// Element is a DOM element.
type Element interface {
	Attribute(name string) (string, bool)
}

// Document is the hosting page.
type Document interface {
	// CurrentScript returns the script element being executed, or nil.
	CurrentScript() Element

	// Payload returns the JSON payload embedded for an instance id.
	Payload(id string) ([]byte, bool)
}

// Behavior is the code-behind of a component class.
type Behavior interface {
	Mount() error
}

// Disposer is implemented by behaviors holding resources beyond their bus
// subscriptions.
type Disposer interface {
	Dispose()
}

// BehaviorFactory instantiates a behavior for a hydrated instance.
type BehaviorFactory func(c *Component) Behavior

type entry struct {
	component *Component
	behavior  Behavior
}

// Registry records hydrated component instances by id. Obtain it through
// GetRegistry; all mutation goes through its methods.
type Registry struct {
	mu         sync.RWMutex
	components map[string]entry

	bus    *bus.Bus
	logger *slog.Logger
	banner sync.Once
}

var (
	registryOnce sync.Once
	registry     *Registry
)

// GetRegistry returns the page-wide registry, creating it on first access.
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		registry = newRegistry(slog.Default())
	})
	return registry
}

func newRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		components: make(map[string]entry),
		bus:        bus.New(bus.Config{Logger: logger}),
		logger:     logger,
	}
}

// Bus returns the event bus shared by the registered components.
func (r *Registry) Bus() *bus.Bus {
	return r.bus
}

// RegisterComponentCodeBehind registers factory for the instance owning the
// current script of doc with the page-wide registry.
func RegisterComponentCodeBehind(doc Document, factory BehaviorFactory) error {
	return GetRegistry().Register(doc, factory)
}

// Register reads the instance id from the current script, builds the
// component handle from the embedded payload, instantiates and mounts the
// behavior. Failures are logged and returned as *RegistrationError; nothing
// is recorded in that case.
func (r *Registry) Register(doc Document, factory BehaviorFactory) error {
	var id string
	if script := doc.CurrentScript(); script != nil {
		id, _ = script.Attribute(PointerAttribute)
	}
	if id == "" {
		return r.fail("", ErrMissingPointer)
	}

	p := Payload{ID: id}
	if raw, ok := doc.Payload(id); ok {
		if err := json.Unmarshal(raw, &p); err != nil {
			return r.fail(id, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
		}
	}
	c := NewComponent(p, r.bus)

	r.mu.Lock()
	if _, exists := r.components[id]; exists {
		r.mu.Unlock()
		return r.fail(id, ErrDuplicateComponent)
	}
	r.components[id] = entry{component: c}
	r.mu.Unlock()

	b, err := instantiate(factory, c)
	if err != nil {
		r.Dispose(id)
		return r.fail(id, err)
	}
	r.mu.Lock()
	r.components[id] = entry{component: c, behavior: b}
	r.mu.Unlock()

	if err := mount(b); err != nil {
		r.Dispose(id)
		return r.fail(id, fmt.Errorf("mount: %w", err))
	}

	r.banner.Do(func() {
		r.logger.Info("blueprint client runtime ready",
			slog.String("first_component", c.Name),
			slog.String("id", id))
	})
	return nil
}

func instantiate(factory BehaviorFactory, c *Component) (b Behavior, err error) {
	if factory == nil {
		return nil, ErrNilBehavior
	}
	defer func() {
		if rec := recover(); rec != nil {
			b, err = nil, fmt.Errorf("%w: %v", ErrBehaviorPanic, rec)
		}
	}()
	if b = factory(c); b == nil {
		return nil, ErrNilBehavior
	}
	return b, nil
}

func mount(b Behavior) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrBehaviorPanic, rec)
		}
	}()
	return b.Mount()
}

func (r *Registry) fail(id string, err error) error {
	rerr := &RegistrationError{ID: id, Err: err}
	r.logger.Error("component registration skipped",
		slog.String("id", id),
		slog.String("error", err.Error()))
	return rerr
}

// Lookup returns the handle and behavior registered under id.
func (r *Registry) Lookup(id string) (*Component, Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.components[id]
	return e.component, e.behavior, ok
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// IDs returns the registered instance ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.components))
	for id := range r.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispose unregisters id, releasing its subscriptions and behavior.
func (r *Registry) Dispose(id string) {
	r.mu.Lock()
	e, ok := r.components[id]
	delete(r.components, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.component.Dispose()
	if d, ok := e.behavior.(Disposer); ok {
		d.Dispose()
	}
}
