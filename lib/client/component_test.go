package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm/blueprint/lib/bus"
	"github.com/pthm/blueprint/lib/client"
)

func family(b *bus.Bus) (root, left, right *client.Component) {
	root = client.NewComponent(client.Payload{ID: "root", Component: "page", View: "home"}, b)
	left = client.NewComponent(client.Payload{ID: "left", ParentID: "root", BlueprintID: "root", NestLevel: 1}, b)
	right = client.NewComponent(client.Payload{ID: "right", ParentID: "root", BlueprintID: "root", NestLevel: 1}, b)
	return root, left, right
}

func TestPublishToSiblingsExcludesSelf(t *testing.T) {
	b := bus.New(bus.Config{})
	_, left, right := family(b)

	var leftGot, rightGot int
	left.On(client.ScopeSiblings, "sync", func(bus.Event) { leftGot++ })
	right.On(client.ScopeSiblings, "sync", func(bus.Event) { rightGot++ })

	evt := left.PublishToSiblings("sync", nil)

	assert.Equal(t, "left", evt.Source)
	assert.Zero(t, leftGot)
	assert.Equal(t, 1, rightGot)
}

func TestPublishToBlueprint(t *testing.T) {
	b := bus.New(bus.Config{})
	root, left, _ := family(b)

	var got []any
	root.On(client.ScopeBlueprint, "saved", func(evt bus.Event) { got = append(got, evt.Payload) })

	left.PublishToBlueprint("saved", 42)
	assert.Equal(t, []any{42}, got)
}

func TestPublishToAll(t *testing.T) {
	b := bus.New(bus.Config{})
	root, left, right := family(b)

	var n int
	for _, c := range []*client.Component{root, left, right} {
		c.On(client.ScopeGlobal, "theme", func(bus.Event) { n++ })
	}
	root.PublishToAll("theme", "dark")
	assert.Equal(t, 3, n)
}

func TestPublishSelfQueuesUntilListening(t *testing.T) {
	b := bus.New(bus.Config{})
	root, _, _ := family(b)

	root.Publish("init", "early")

	var got []any
	root.On(client.ScopeSelf, "init", func(evt bus.Event) { got = append(got, evt.Payload) })
	assert.Equal(t, []any{"early"}, got)
}

func TestComponentDispose(t *testing.T) {
	b := bus.New(bus.Config{})
	root, _, _ := family(b)

	root.On(client.ScopeSelf, "a", func(bus.Event) {})
	root.On(client.ScopeBlueprint, "b", func(bus.Event) {})
	assert.Equal(t, 2, root.Subscriptions())

	root.Dispose()

	assert.Zero(t, root.Subscriptions())
	assert.Zero(t, b.Subscriptions())
}
