// Package bus is the page-wide event bus client components talk through.
//
// Every (channel, topic) pair is an independent ordered queue. Publishing to
// an address with listeners delivers synchronously, in subscription order,
// on the publishing goroutine. Publishing to an address nobody listens to
// queues the event until the first subscriber arrives, which then receives
// the backlog in order. Peek inspects the backlog without consuming it.
package bus

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Well-known channel names.
const (
	GlobalChannel = "global"

	componentPrefix = "component:"
	siblingPrefix   = "siblings:"
	blueprintPrefix = "blueprint:"
)

// ComponentChannel addresses a single component instance.
func ComponentChannel(id string) string { return componentPrefix + id }

// SiblingChannel addresses every child of the given parent.
func SiblingChannel(parentID string) string { return siblingPrefix + parentID }

// BlueprintChannel addresses the blueprint with the given id.
func BlueprintChannel(blueprintID string) string { return blueprintPrefix + blueprintID }

// Address is a (channel, topic) pair.
type Address struct {
	Channel string
	Topic   string
}

func (a Address) String() string {
	return a.Channel + "#" + a.Topic
}

// Event is a published message.
type Event struct {
	Address
	Payload any

	// Source is the id of the publishing component. Subscriptions created
	// with ExcludeSource never see their own events.
	Source string

	// Seq is assigned by the bus and increases with every publish.
	Seq  uint64
	Time time.Time
}

// Listener receives delivered events.
type Listener func(Event)

// DefaultQueueLimit bounds the backlog of each address.
const DefaultQueueLimit = 256

// Config configures a Bus.
type Config struct {
	// QueueLimit bounds undelivered events per address. The oldest event
	// is dropped when the limit is reached. Default: DefaultQueueLimit.
	QueueLimit int

	// OnDrop is called for every event dropped from a full queue.
	OnDrop func(Event)

	Logger *slog.Logger
}

// Bus is an in-memory event bus. It is safe for concurrent use; listeners
// are never invoked with the bus lock held, so they may publish and
// subscribe themselves.
type Bus struct {
	cfg Config

	mu     sync.Mutex
	queues map[Address][]Event
	subs   map[Address][]*Subscription
	seq    uint64
	nextID uint64

	// delivering marks addresses with a delivery in flight and holds the
	// events published to them meanwhile.
	delivering map[Address][]Event
}

// New creates a bus.
func New(cfg Config) *Bus {
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bus{
		cfg:    cfg,
		queues:     make(map[Address][]Event),
		subs:       make(map[Address][]*Subscription),
		delivering: make(map[Address][]Event),
	}
}

// Subscription is an active listener registration.
type Subscription struct {
	id       uint64
	addr     Address
	listener Listener
	exclude  string
	bus      *Bus
}

// Address returns the subscribed address.
func (s *Subscription) Address() Address {
	return s.addr
}

// Unsubscribe removes the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.bus != nil {
		s.bus.Unsubscribe(s)
	}
}

func (s *Subscription) accepts(evt Event) bool {
	return s.exclude == "" || s.exclude != evt.Source
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// ExcludeSource filters out events published by id.
func ExcludeSource(id string) SubscribeOption {
	return func(s *Subscription) { s.exclude = id }
}

// Publish sends payload to addr and returns the event. Eligible listeners
// are called before Publish returns; without any the event is queued. An
// event published while addr is mid-delivery, for example by one of its own
// listeners, is delivered after the in-flight events by the goroutine
// already delivering.
func (b *Bus) Publish(addr Address, payload any) Event {
	return b.PublishFrom("", addr, payload)
}

// PublishFrom is Publish with the publishing component's id as source.
func (b *Bus) PublishFrom(source string, addr Address, payload any) Event {
	b.mu.Lock()
	b.seq++
	evt := Event{Address: addr, Payload: payload, Source: source, Seq: b.seq, Time: time.Now()}

	if pending, busy := b.delivering[addr]; busy {
		b.delivering[addr] = append(pending, evt)
		b.mu.Unlock()
		return evt
	}

	targets := b.targets(evt)
	var dropped []Event
	if len(targets) == 0 {
		dropped = b.enqueue(evt)
		b.mu.Unlock()
		b.reportDropped(dropped)
		return evt
	}
	b.delivering[addr] = nil
	b.mu.Unlock()

	for _, s := range targets {
		s.listener(evt)
	}
	b.flush(addr)
	return evt
}

// targets returns the subscriptions accepting evt. Callers hold b.mu.
func (b *Bus) targets(evt Event) []*Subscription {
	var out []*Subscription
	for _, s := range b.subs[evt.Address] {
		if s.accepts(evt) {
			out = append(out, s)
		}
	}
	return out
}

// enqueue appends evt to its address backlog and returns the events pushed
// out by the queue limit. Callers hold b.mu.
func (b *Bus) enqueue(evt Event) []Event {
	var dropped []Event
	q := append(b.queues[evt.Address], evt)
	if over := len(q) - b.cfg.QueueLimit; over > 0 {
		dropped = slices.Clone(q[:over])
		q = slices.Delete(q, 0, over)
	}
	b.queues[evt.Address] = q
	return dropped
}

func (b *Bus) reportDropped(dropped []Event) {
	for _, d := range dropped {
		b.cfg.Logger.Warn("bus queue full, dropping event",
			slog.String("address", d.Address.String()),
			slog.Uint64("seq", d.Seq))
		if b.cfg.OnDrop != nil {
			b.cfg.OnDrop(d)
		}
	}
}

// flush delivers the events published to addr during an in-flight delivery,
// one at a time and in publish order, then releases the address.
func (b *Bus) flush(addr Address) {
	for {
		b.mu.Lock()
		pending := b.delivering[addr]
		if len(pending) == 0 {
			delete(b.delivering, addr)
			b.mu.Unlock()
			return
		}
		evt := pending[0]
		b.delivering[addr] = pending[1:]
		targets := b.targets(evt)
		var dropped []Event
		if len(targets) == 0 {
			dropped = b.enqueue(evt)
		}
		b.mu.Unlock()

		b.reportDropped(dropped)
		for _, s := range targets {
			s.listener(evt)
		}
	}
}

// Subscribe registers fn for addr. Queued events the subscription accepts
// are removed from the queue and delivered before Subscribe returns, ahead
// of anything published to addr meanwhile.
func (b *Bus) Subscribe(addr Address, fn Listener, opts ...SubscribeOption) *Subscription {
	b.mu.Lock()
	b.nextID++
	sub := &Subscription{id: b.nextID, addr: addr, listener: fn, bus: b}
	for _, opt := range opts {
		opt(sub)
	}
	b.subs[addr] = append(b.subs[addr], sub)

	var backlog []Event
	if q := b.queues[addr]; len(q) > 0 {
		var keep []Event
		for _, evt := range q {
			if sub.accepts(evt) {
				backlog = append(backlog, evt)
			} else {
				keep = append(keep, evt)
			}
		}
		if len(keep) == 0 {
			delete(b.queues, addr)
		} else {
			b.queues[addr] = keep
		}
	}
	_, busy := b.delivering[addr]
	owner := len(backlog) > 0 && !busy
	if owner {
		b.delivering[addr] = nil
	}
	b.mu.Unlock()

	for _, evt := range backlog {
		fn(evt)
	}
	if owner {
		b.flush(addr)
	}
	return sub
}

// Unsubscribe removes sub. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.addr]
	i := slices.IndexFunc(list, func(s *Subscription) bool { return s.id == sub.id })
	if i < 0 {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(b.subs, sub.addr)
	} else {
		b.subs[sub.addr] = list
	}
}

// Peek returns a copy of the undelivered events queued for addr.
func (b *Bus) Peek(addr Address) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.queues[addr])
}

// Listeners returns the number of subscriptions on addr.
func (b *Bus) Listeners(addr Address) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[addr])
}

// Subscriptions returns the total number of active subscriptions.
func (b *Bus) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, list := range b.subs {
		n += len(list)
	}
	return n
}
