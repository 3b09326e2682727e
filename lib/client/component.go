package client

import (
	"sync"

	"github.com/pthm/blueprint/lib/bus"
)

// Scope selects the channel a component listens on.
type Scope int

const (
	// ScopeSelf is the component's own channel.
	ScopeSelf Scope = iota
	// ScopeGlobal reaches every component on the page.
	ScopeGlobal
	// ScopeSiblings reaches components sharing the same parent. A component
	// never receives its own sibling broadcasts.
	ScopeSiblings
	// ScopeBlueprint is the channel of the enclosing blueprint.
	ScopeBlueprint
)

// Component is the client-side handle of one hydrated component instance.
// Every subscription made through it is released by Dispose.
type Component struct {
	ID          string
	Name        string
	View        string
	ParentID    string
	BlueprintID string
	NestLevel   int
	Data        map[string]any

	bus *bus.Bus

	mu   sync.Mutex
	subs []*bus.Subscription
}

// NewComponent builds a handle from a decoded payload.
func NewComponent(p Payload, b *bus.Bus) *Component {
	return &Component{
		ID:          p.ID,
		Name:        p.Component,
		View:        p.View,
		ParentID:    p.ParentID,
		BlueprintID: p.BlueprintID,
		NestLevel:   p.NestLevel,
		Data:        p.Data,
		bus:         b,
	}
}

// blueprintID is the id of the enclosing blueprint, or the component's own
// id when it is the blueprint.
func (c *Component) blueprintID() string {
	if c.BlueprintID != "" {
		return c.BlueprintID
	}
	return c.ID
}

func (c *Component) channel(scope Scope) string {
	switch scope {
	case ScopeGlobal:
		return bus.GlobalChannel
	case ScopeSiblings:
		return bus.SiblingChannel(c.ParentID)
	case ScopeBlueprint:
		return bus.BlueprintChannel(c.blueprintID())
	default:
		return bus.ComponentChannel(c.ID)
	}
}

// On subscribes fn to topic on the channel selected by scope.
func (c *Component) On(scope Scope, topic string, fn bus.Listener) *bus.Subscription {
	var opts []bus.SubscribeOption
	if scope == ScopeSiblings {
		opts = append(opts, bus.ExcludeSource(c.ID))
	}
	sub := c.bus.Subscribe(bus.Address{Channel: c.channel(scope), Topic: topic}, fn, opts...)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Publish sends to the component's own channel.
func (c *Component) Publish(topic string, payload any) bus.Event {
	return c.publish(ScopeSelf, topic, payload)
}

// PublishToAll broadcasts to every component on the page.
func (c *Component) PublishToAll(topic string, payload any) bus.Event {
	return c.publish(ScopeGlobal, topic, payload)
}

// PublishToSiblings broadcasts to the other children of the same parent.
func (c *Component) PublishToSiblings(topic string, payload any) bus.Event {
	return c.publish(ScopeSiblings, topic, payload)
}

// PublishToBlueprint sends to the enclosing blueprint.
func (c *Component) PublishToBlueprint(topic string, payload any) bus.Event {
	return c.publish(ScopeBlueprint, topic, payload)
}

func (c *Component) publish(scope Scope, topic string, payload any) bus.Event {
	return c.bus.PublishFrom(c.ID, bus.Address{Channel: c.channel(scope), Topic: topic}, payload)
}

// Dispose removes every subscription made through the handle.
func (c *Component) Dispose() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

// Subscriptions returns the number of live subscriptions held.
func (c *Component) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
