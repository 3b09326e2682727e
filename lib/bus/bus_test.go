package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/blueprint/lib/bus"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.GlobalChannel, Topic: "cart"}

	var got []string
	b.Subscribe(addr, func(evt bus.Event) { got = append(got, "first:"+evt.Payload.(string)) })
	b.Subscribe(addr, func(evt bus.Event) { got = append(got, "second:"+evt.Payload.(string)) })

	evt := b.Publish(addr, "added")

	assert.Equal(t, []string{"first:added", "second:added"}, got)
	assert.Equal(t, addr, evt.Address)
	assert.NotZero(t, evt.Seq)
	assert.Empty(t, b.Peek(addr), "delivered events are consumed")
}

func TestPublishWithoutListenersQueues(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.ComponentChannel("c1"), Topic: "ready"}

	e1 := b.Publish(addr, 1)
	e2 := b.Publish(addr, 2)

	queued := b.Peek(addr)
	require.Len(t, queued, 2)
	assert.Equal(t, e1.Seq, queued[0].Seq)
	assert.Equal(t, e2.Seq, queued[1].Seq)
	assert.Len(t, b.Peek(addr), 2, "peek does not consume")

	var got []any
	b.Subscribe(addr, func(evt bus.Event) { got = append(got, evt.Payload) })
	assert.Equal(t, []any{1, 2}, got)
	assert.Empty(t, b.Peek(addr))
}

func TestTopicsAreIndependent(t *testing.T) {
	b := bus.New(bus.Config{})
	a := bus.Address{Channel: bus.GlobalChannel, Topic: "a"}
	other := bus.Address{Channel: bus.GlobalChannel, Topic: "b"}

	var hits int
	b.Subscribe(a, func(bus.Event) { hits++ })
	b.Publish(other, nil)

	assert.Zero(t, hits)
	assert.Len(t, b.Peek(other), 1)
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.GlobalChannel, Topic: "t"}

	var hits int
	sub := b.Subscribe(addr, func(bus.Event) { hits++ })
	b.Publish(addr, nil)
	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Publish(addr, nil)

	assert.Equal(t, 1, hits)
	assert.Zero(t, b.Listeners(addr))
	assert.Zero(t, b.Subscriptions())
	assert.Len(t, b.Peek(addr), 1, "no listener left, so the event is queued")
}

func TestExcludeSource(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.SiblingChannel("parent"), Topic: "sync"}

	var self, sibling int
	b.Subscribe(addr, func(bus.Event) { self++ }, bus.ExcludeSource("a"))
	b.Subscribe(addr, func(bus.Event) { sibling++ }, bus.ExcludeSource("b"))

	b.PublishFrom("a", addr, nil)

	assert.Zero(t, self)
	assert.Equal(t, 1, sibling)
}

func TestExcludedBacklogStaysQueued(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.SiblingChannel("parent"), Topic: "sync"}

	b.PublishFrom("a", addr, "from-a")

	var got int
	b.Subscribe(addr, func(bus.Event) { got++ }, bus.ExcludeSource("a"))
	assert.Zero(t, got)
	assert.Len(t, b.Peek(addr), 1)

	b.Subscribe(addr, func(bus.Event) { got++ }, bus.ExcludeSource("b"))
	assert.Equal(t, 1, got)
	assert.Empty(t, b.Peek(addr))
}

func TestQueueLimitDropsOldest(t *testing.T) {
	var dropped []bus.Event
	b := bus.New(bus.Config{QueueLimit: 2, OnDrop: func(evt bus.Event) { dropped = append(dropped, evt) }})
	addr := bus.Address{Channel: bus.GlobalChannel, Topic: "t"}

	b.Publish(addr, 1)
	b.Publish(addr, 2)
	b.Publish(addr, 3)

	queued := b.Peek(addr)
	require.Len(t, queued, 2)
	assert.Equal(t, 2, queued[0].Payload)
	assert.Equal(t, 3, queued[1].Payload)
	require.Len(t, dropped, 1)
	assert.Equal(t, 1, dropped[0].Payload)
}

func TestListenerMayPublish(t *testing.T) {
	b := bus.New(bus.Config{})
	ping := bus.Address{Channel: bus.GlobalChannel, Topic: "ping"}
	pong := bus.Address{Channel: bus.GlobalChannel, Topic: "pong"}

	var pongs int
	b.Subscribe(pong, func(bus.Event) { pongs++ })
	b.Subscribe(ping, func(evt bus.Event) { b.Publish(pong, evt.Payload) })

	b.Publish(ping, nil)
	assert.Equal(t, 1, pongs)
}

func TestBacklogDrainKeepsOrder(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.GlobalChannel, Topic: "seq"}
	b.Publish(addr, 1)
	b.Publish(addr, 2)

	var got []any
	b.Subscribe(addr, func(evt bus.Event) {
		got = append(got, evt.Payload)
		if evt.Payload == 1 {
			b.Publish(addr, 3)
		}
	})

	assert.Equal(t, []any{1, 2, 3}, got)
	assert.Empty(t, b.Peek(addr))
}

func TestReentrantPublishKeepsOrder(t *testing.T) {
	b := bus.New(bus.Config{})
	addr := bus.Address{Channel: bus.GlobalChannel, Topic: "seq"}

	var first, second []any
	b.Subscribe(addr, func(evt bus.Event) {
		first = append(first, evt.Payload)
		if evt.Payload == "a" {
			b.Publish(addr, "b")
		}
	})
	b.Subscribe(addr, func(evt bus.Event) { second = append(second, evt.Payload) })

	b.Publish(addr, "a")

	assert.Equal(t, []any{"a", "b"}, first)
	assert.Equal(t, []any{"a", "b"}, second, "every listener sees the address in publish order")

	b.Publish(addr, "c")
	assert.Equal(t, []any{"a", "b", "c"}, second, "address is released after delivery")
}

func TestChannelNames(t *testing.T) {
	assert.NotEqual(t, bus.ComponentChannel("x"), bus.SiblingChannel("x"))
	assert.NotEqual(t, bus.SiblingChannel("x"), bus.BlueprintChannel("x"))
	assert.Equal(t, "global#t", bus.Address{Channel: bus.GlobalChannel, Topic: "t"}.String())
}
