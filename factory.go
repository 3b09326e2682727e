package blueprint

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pthm/blueprint/lib/telemetry"
)

// FactoryFunc prepares data on the context before rendering.
type FactoryFunc func(ctx context.Context, cc *ComponentContext) error

// Factory is a data-preparation unit. Lower priorities run first within
// their scope; equal priorities run in declaration order.
type Factory struct {
	Name     string
	Priority int
	Func     FactoryFunc
}

// Scope is where a factory was declared.
type Scope string

const (
	ScopeView      Scope = "view"
	ScopeComponent Scope = "component"
	ScopeGlobal    Scope = "global"
)

// FactorySet holds the factories of all three scopes.
type FactorySet struct {
	View      []Factory
	Component []Factory
	Global    []Factory
}

// Len returns the total number of factories.
func (s FactorySet) Len() int {
	return len(s.View) + len(s.Component) + len(s.Global)
}

// Ordered returns the factories in execution order: view, component and
// global scope, each sorted by priority with ties kept in declaration order.
func (s FactorySet) Ordered() []ScopedFactory {
	out := make([]ScopedFactory, 0, s.Len())
	for _, scope := range []struct {
		scope Scope
		list  []Factory
	}{{ScopeView, s.View}, {ScopeComponent, s.Component}, {ScopeGlobal, s.Global}} {
		for _, f := range byPriority(scope.list) {
			out = append(out, ScopedFactory{Scope: scope.scope, Factory: f})
		}
	}
	return out
}

// byPriority returns a stably sorted copy of list.
func byPriority(list []Factory) []Factory {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b Factory) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return sorted
}

// ScopedFactory is a factory tagged with its scope.
type ScopedFactory struct {
	Scope Scope
	Factory
}

// StageState is a state of the factory stage.
type StageState int

const (
	StatePending StageState = iota
	StateRunningView
	StateRunningComponent
	StateRunningGlobal
	StateDone
)

func (s StageState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunningView:
		return "running(view)"
	case StateRunningComponent:
		return "running(component)"
	case StateRunningGlobal:
		return "running(global)"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// FactoryStage runs one component's factories against its context.
//
// The stage moves PENDING → RUNNING(view) → RUNNING(component) →
// RUNNING(global) → DONE and passes through every state even when a scope
// is empty. Factories are awaited one at a time.
type FactoryStage struct {
	set     FactorySet
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	state StageState

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to StageState)
}

// NewFactoryStage creates a stage for the given factories.
func NewFactoryStage(set FactorySet, logger *slog.Logger) *FactoryStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactoryStage{set: set, logger: logger}
}

// State returns the current stage state.
func (s *FactoryStage) State() StageState {
	return s.state
}

func (s *FactoryStage) transition(to StageState) {
	from := s.state
	s.state = to
	if s.OnTransition != nil {
		s.OnTransition(from, to)
	}
}

// Run executes the factories in order. A failing factory is logged, its
// error recorded on the context and an error marker merged into public
// data; the stage moves on. Only context cancellation stops the stage.
func (s *FactoryStage) Run(ctx context.Context, cc *ComponentContext) error {
	scopes := []struct {
		state StageState
		scope Scope
		list  []Factory
	}{
		{StateRunningView, ScopeView, s.set.View},
		{StateRunningComponent, ScopeComponent, s.set.Component},
		{StateRunningGlobal, ScopeGlobal, s.set.Global},
	}

	for _, sc := range scopes {
		s.transition(sc.state)

		for _, f := range byPriority(sc.list) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.runOne(ctx, cc, sc.scope, f); err != nil {
				fe := &FactoryError{
					Component: cc.ComponentName,
					View:      cc.ViewName,
					Factory:   f.Name,
					Scope:     sc.scope,
					Err:       err,
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				cc.errors = append(cc.errors, fe)
				cc.MergePublicData(map[string]any{
					"error":   true,
					"message": err.Error(),
				})
				telemetry.LogFactoryError(s.logger, cc.ComponentName, cc.ViewName, f.Name, string(sc.scope), err)
			}
		}
	}

	s.transition(StateDone)
	return nil
}

func (s *FactoryStage) runOne(ctx context.Context, cc *ComponentContext, scope Scope, f Factory) (err error) {
	ctx, span := s.tracer.StartFactorySpan(ctx, cc.ComponentName, f.Name, string(scope))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		s.metrics.ObserveFactory(cc.ComponentName, string(scope), time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()
	if f.Func == nil {
		return nil
	}
	return f.Func(ctx, cc)
}
