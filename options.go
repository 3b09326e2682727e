package blueprint

import (
	"maps"
	"slices"
)

// EffectiveOptions are the options one view renders with, produced by
// MergeOptions from the manifest, component and view scopes.
type EffectiveOptions struct {
	// Components maps child names to addresses. Later scopes overwrite
	// earlier ones by name.
	Components map[string]Address

	// Factories keeps the three scopes apart because scope order always
	// beats priority.
	Factories FactorySet

	Helpers     map[string]any
	ParamSchema *ParamSchema

	// Wrappers are development content wrappers, outermost first.
	Wrappers []string
}

// ChildNames returns the child names in sorted order.
func (o EffectiveOptions) ChildNames() []string {
	return slices.Sorted(maps.Keys(o.Components))
}

// MergeOptions merges global < component < view options. It never mutates
// its inputs; every map and slice in the result is freshly allocated.
func MergeOptions(global SharedOptions, dev DevelopmentOptions, c *Component, v *View) EffectiveOptions {
	out := EffectiveOptions{
		Components: make(map[string]Address),
		Helpers:    make(map[string]any),
	}

	// Duplicate child names resolve last-write-wins.
	for _, src := range []map[string]Address{global.Components, c.Shared.Components, v.Components} {
		for name, addr := range src {
			addr.Params = maps.Clone(addr.Params)
			out.Components[name] = addr
		}
	}
	for _, src := range []map[string]any{global.Helpers, c.Shared.Helpers, v.Helpers} {
		maps.Copy(out.Helpers, src)
	}

	out.Factories = FactorySet{
		View:      slices.Clone(v.Factories),
		Component: slices.Clone(c.Shared.Factories),
		Global:    slices.Clone(global.Factories),
	}

	switch {
	case v.ParamSchema != nil:
		out.ParamSchema = v.ParamSchema
	case c.Shared.ParamSchema != nil:
		out.ParamSchema = c.Shared.ParamSchema
	}

	for _, w := range []string{dev.ContentWrapper, c.Development.ContentWrapper, v.Development.ContentWrapper} {
		if w != "" {
			out.Wrappers = append(out.Wrappers, w)
		}
	}
	return out
}
