package blueprint

import (
	"context"
	"fmt"
	"html"
	"maps"
)

// PreRenderOptions supply the synthetic data a pre-render runs with.
type PreRenderOptions struct {
	Data   map[string]any
	Params Params
}

// PreRenderer renders views in isolation for template authoring checks.
// Children are replaced by stubs and factories are not run, so the output
// depends only on the view definition and the supplied options.
type PreRenderer struct {
	resolver *Resolver
}

// NewPreRenderer returns a pre-renderer over the resolver's manifest.
func NewPreRenderer(r *Resolver) *PreRenderer {
	return &PreRenderer{resolver: r}
}

// PreRender renders component/view once. Each call uses fresh renderer
// instances, so repeated calls on an unchanged view yield identical bytes.
func (p *PreRenderer) PreRender(ctx context.Context, component, view string, opts PreRenderOptions) ([]byte, error) {
	r := p.resolver
	comp, ok := r.components[component]
	if !ok {
		return nil, fmt.Errorf("%w: component %q", ErrNotFound, component)
	}
	v, ok := comp.View(view)
	if !ok {
		return nil, fmt.Errorf("%w: view %q of component %q", ErrNotFound, view, component)
	}

	tmpl, err := v.GetTemplate(r.fsys, comp.Root)
	if err != nil {
		return nil, &RenderError{Component: component, View: view, Err: err}
	}

	merged := MergeOptions(r.manifest.Shared, r.manifest.Development, comp, v)
	cc := &ComponentContext{
		ID:            "prerender-" + component + "-" + view,
		ComponentName: component,
		ViewName:      view,
		Template:      tmpl,
		Params:        opts.Params.clone(),
		DeviceType:    DeviceDesktop,
		Title:         component,
		Components:    make(map[string][]byte, len(merged.Components)),
		Helpers:       merged.Helpers,
	}
	for _, name := range merged.ChildNames() {
		cc.Components[name] = stub(name)
	}
	cc.MergePublicData(maps.Clone(opts.Data))

	kind := KindFor(v, tmpl)
	renderer, ok := freshRenderer(r.renderers, kind)
	if !ok {
		return nil, &RenderError{Component: component, View: view, Err: fmt.Errorf("no renderer for kind %q", kind)}
	}
	out, err := renderer.Render(ctx, cc)
	if err != nil {
		return nil, &RenderError{Component: component, View: view, Err: err}
	}
	return out, nil
}

// CheckAll pre-renders every view of the manifest and returns the
// failures keyed by address.
func (p *PreRenderer) CheckAll(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, comp := range p.resolver.manifest.Components {
		for _, v := range comp.Views {
			addr := Address{Component: comp.Path, View: v.Name}
			if _, err := p.PreRender(ctx, comp.Path, v.Name, PreRenderOptions{}); err != nil {
				failures[addr.String()] = err
			}
		}
	}
	return failures
}

func stub(name string) []byte {
	n := html.EscapeString(name)
	return []byte(`<div data-prerender-stub="` + n + `">` + n + `</div>`)
}

// freshRenderer returns a new instance of the default renderer for kind.
// Custom renderers installed with WithRenderer are used as-is.
func freshRenderer(installed map[Kind]Renderer, kind Kind) (Renderer, bool) {
	current, ok := installed[kind]
	if !ok {
		return nil, false
	}
	switch rr := current.(type) {
	case *HTMLRenderer:
		return &HTMLRenderer{Assets: rr.Assets}, true
	case *TextRenderer:
		return &TextRenderer{Assets: rr.Assets}, true
	case *EJSRenderer:
		return &EJSRenderer{Assets: rr.Assets}, true
	case *TemplRenderer:
		return &TemplRenderer{Assets: rr.Assets}, true
	case *FuncRenderer:
		return &FuncRenderer{Assets: rr.Assets}, true
	}
	return current, true
}
