package blueprint

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logged returns a factory appending its name to log.
func logged(log *[]string, name string, priority int) Factory {
	return Factory{Name: name, Priority: priority, Func: func(ctx context.Context, cc *ComponentContext) error {
		*log = append(*log, name)
		return nil
	}}
}

func TestFactoryStageOrder(t *testing.T) {
	var log []string
	set := FactorySet{
		View:      []Factory{logged(&log, "v-late", 5), logged(&log, "v-early", -1), logged(&log, "v-tie-a", 5)},
		Component: []Factory{logged(&log, "c-only", 100)},
		Global:    []Factory{logged(&log, "g-first", -50), logged(&log, "g-second", 0)},
	}

	stage := NewFactoryStage(set, nil)
	require.NoError(t, stage.Run(context.Background(), &ComponentContext{}))

	// Scope order beats priority: a global factory with priority -50 still
	// runs after every view and component factory.
	want := []string{"v-early", "v-late", "v-tie-a", "c-only", "g-first", "g-second"}
	assert.Equal(t, want, log)

	var ordered []string
	for _, f := range set.Ordered() {
		ordered = append(ordered, f.Name)
	}
	assert.Equal(t, want, ordered)
	assert.Equal(t, 6, set.Len())
}

// sleepy returns a factory that finishes its work asynchronously after d.
func sleepy(log *[]string, mu *sync.Mutex, name string, priority int, d time.Duration) Factory {
	return Factory{Name: name, Priority: priority, Func: func(ctx context.Context, cc *ComponentContext) error {
		done := make(chan struct{})
		go func() {
			defer close(done)
			time.Sleep(d)
			mu.Lock()
			*log = append(*log, name)
			mu.Unlock()
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
}

func TestFactoryStageOrderIgnoresTiming(t *testing.T) {
	var (
		log []string
		mu  sync.Mutex
	)
	set := FactorySet{
		View: []Factory{
			sleepy(&log, &mu, "v-slow", 0, 30*time.Millisecond),
			sleepy(&log, &mu, "v-fast", 1, 0),
			sleepy(&log, &mu, "v-medium", 2, 10*time.Millisecond),
		},
		Component: []Factory{sleepy(&log, &mu, "c-fast", 0, 0)},
		Global: []Factory{
			sleepy(&log, &mu, "g-slow", -1, 20*time.Millisecond),
			sleepy(&log, &mu, "g-fast", 0, time.Millisecond),
		},
	}

	stage := NewFactoryStage(set, nil)
	require.NoError(t, stage.Run(context.Background(), &ComponentContext{}))

	assert.Equal(t, []string{"v-slow", "v-fast", "v-medium", "c-fast", "g-slow", "g-fast"}, log)
}

func TestFactoryStageTransitions(t *testing.T) {
	tests := []struct {
		name string
		set  FactorySet
	}{
		{"empty", FactorySet{}},
		{"global only", FactorySet{Global: []Factory{{Name: "g"}}}},
		{"all scopes", FactorySet{
			View:      []Factory{{Name: "v"}},
			Component: []Factory{{Name: "c"}},
			Global:    []Factory{{Name: "g"}},
		}},
	}
	want := []string{"pending>running(view)", "running(view)>running(component)",
		"running(component)>running(global)", "running(global)>done"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			stage := NewFactoryStage(tt.set, nil)
			stage.OnTransition = func(from, to StageState) {
				got = append(got, from.String()+">"+to.String())
			}
			if stage.State() != StatePending {
				t.Fatalf("State() = %v, want pending", stage.State())
			}
			require.NoError(t, stage.Run(context.Background(), &ComponentContext{}))
			assert.Equal(t, want, got)
			assert.Equal(t, StateDone, stage.State())
		})
	}
}

func TestFactoryStageFailureMarker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var log []string
	set := FactorySet{View: []Factory{
		{Name: "broken", Func: func(ctx context.Context, cc *ComponentContext) error {
			return errors.New("upstream 503")
		}},
		logged(&log, "after", 1),
	}}
	cc := &ComponentContext{ComponentName: "weather", ViewName: "main"}

	require.NoError(t, NewFactoryStage(set, logger).Run(context.Background(), cc))

	assert.Equal(t, []string{"after"}, log, "later factories still run")
	assert.Equal(t, true, cc.PublicData()["error"])
	assert.Equal(t, "upstream 503", cc.PublicData()["message"])
	require.Len(t, cc.Errors(), 1)

	var fe *FactoryError
	require.ErrorAs(t, cc.Errors()[0], &fe)
	assert.Equal(t, ScopeView, fe.Scope)
	assert.Equal(t, "broken", fe.Factory)
	assert.True(t, strings.Contains(buf.String(), "factory=broken"), "log: %s", buf.String())
}

func TestFactoryStagePanicIsAbsorbed(t *testing.T) {
	set := FactorySet{Component: []Factory{{Name: "panicky", Func: func(ctx context.Context, cc *ComponentContext) error {
		var m map[string]int
		m["x"] = 1
		return nil
	}}}}
	cc := &ComponentContext{}

	require.NoError(t, NewFactoryStage(set, nil).Run(context.Background(), cc))
	require.Len(t, cc.Errors(), 1)
	assert.Contains(t, cc.Errors()[0].Error(), "panic:")
	assert.Equal(t, true, cc.PublicData()["error"])
}

func TestFactoryStageCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var log []string
	set := FactorySet{View: []Factory{
		{Name: "cancel", Func: func(ctx context.Context, cc *ComponentContext) error {
			cancel()
			return nil
		}},
		logged(&log, "never", 1),
	}}

	stage := NewFactoryStage(set, nil)
	err := stage.Run(ctx, &ComponentContext{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
	assert.NotEqual(t, StateDone, stage.State())
}

func TestFactoryStageSharedContext(t *testing.T) {
	set := FactorySet{
		View: []Factory{setData("user", "ada")},
		Global: []Factory{{Name: "greet", Func: func(ctx context.Context, cc *ComponentContext) error {
			user, _ := cc.Get("user")
			cc.SetPublicData("greeting", "hello "+user.(string))
			return nil
		}}},
	}
	cc := &ComponentContext{}
	require.NoError(t, NewFactoryStage(set, nil).Run(context.Background(), cc))
	assert.Equal(t, "hello ada", cc.PublicData()["greeting"])
}
