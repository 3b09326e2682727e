package blueprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm/blueprint/lib/telemetry"
)

// Request asks the resolver for one component view.
type Request struct {
	Component string
	View      string
	Params    Params

	// Parent is the calling context for nested resolutions. Request-scoped
	// values (device type, locale, auth, server URL, title) are inherited
	// from it.
	Parent *ComponentContext

	// Fragment marks a top-level request for a bare fragment rather than a
	// document. Such a request is not a blueprint.
	Fragment bool

	DeviceType DeviceType
	ServerURL  string
	Title      string
	Locale     string
	Auth       any
}

// Resolver orchestrates the full render of a component view and its
// descendants: lookup, parameter validation, option merging, child
// resolution, factories, development instrumentation, rendering and
// packaging.
//
// A Resolver is safe for concurrent use. It never mutates the manifest.
type Resolver struct {
	*settings
	manifest   Manifest
	components map[string]*Component
}

// NewResolver indexes the manifest and returns a resolver for it.
func NewResolver(m Manifest, opts ...Option) (*Resolver, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	m.Components = slices.Clone(m.Components)
	idx, err := m.index()
	if err != nil {
		return nil, err
	}
	return &Resolver{settings: s, manifest: m, components: idx}, nil
}

// Environment returns the configured environment.
func (r *Resolver) Environment() Environment {
	return r.env
}

// Component returns the component registered under path.
func (r *Resolver) Component(path string) (*Component, bool) {
	c, ok := r.components[path]
	return c, ok
}

// Manifest returns the manifest the resolver was built from.
func (r *Resolver) Manifest() *Manifest {
	return &r.manifest
}

// Resolve renders the requested component view. NotFound, validation and
// depth errors are returned for the requested view itself; failures of
// descendants are absorbed into inline error fragments. Context
// cancellation aborts the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Fragment, error) {
	var path []Address
	if req.Parent != nil {
		path = []Address{{Component: req.Parent.ComponentName, View: req.Parent.ViewName}}
	}
	return r.resolve(ctx, req, path)
}

func (r *Resolver) resolve(ctx context.Context, req Request, ancestry []Address) (frag *Fragment, err error) {
	self := Address{Component: req.Component, View: req.View}
	nest := 0
	if req.Parent != nil {
		nest = req.Parent.NestLevel + 1
	}

	start := time.Now()
	ctx, span := r.tracer.StartResolveSpan(ctx, req.Component, req.View, nest)
	defer func() {
		r.metrics.ObserveResolve(req.Component, time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	if nest > r.maxNestLevel {
		r.metrics.DepthExceeded()
		return nil, fmt.Errorf("%w: %s (limit %d)", ErrDepthExceeded, chain(ancestry, self), r.maxNestLevel)
	}

	comp, ok := r.components[req.Component]
	if !ok {
		return nil, fmt.Errorf("%w: component %q", ErrNotFound, req.Component)
	}
	view, ok := comp.View(req.View)
	if !ok {
		return nil, fmt.Errorf("%w: view %q of component %q", ErrNotFound, req.View, req.Component)
	}

	opts := MergeOptions(r.manifest.Shared, r.manifest.Development, comp, view)

	fields, err := opts.ParamSchema.Validate(req.Params)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Component: comp.Path, View: view.Name, Fields: fields}
	}

	cc := r.newContext(req, nest, opts)
	logger := telemetry.EnrichLogger(telemetry.LoggerFrom(ctx, r.logger), cc.ComponentName, cc.ViewName, nest)
	telemetry.LogResolveStart(logger, cc.ID)

	tmpl, tmplErr := view.GetTemplate(r.fsys, comp.Root)
	cc.Template = tmpl

	assets, err := r.resolveChildren(ctx, cc, opts, append(slices.Clip(ancestry), self), logger)
	if err != nil {
		return nil, err
	}

	stage := NewFactoryStage(opts.Factories, logger)
	stage.metrics, stage.tracer = r.metrics, r.tracer
	if err := stage.Run(ctx, cc); err != nil {
		return nil, err
	}

	// Callables cannot be wrapped, so they always get a panel outside
	// production; strings are wrapped only when a wrapper is declared.
	if !r.env.IsProduction() && cc.RenderAsBlueprint && tmplErr == nil {
		if isCallable(tmpl) {
			cc.DevPanel = true
		} else if len(opts.Wrappers) > 0 {
			cc.Template = wrapTemplate(tmpl.(string), opts.Wrappers)
		}
	}

	kind := KindFor(view, tmpl)
	out, renderErr := r.render(ctx, cc, kind, tmplErr, logger)
	if cc.DevPanel {
		out = append(out, renderToBytes(ctx, DevPanel(self.String(), cc.ID, nest))...)
	}

	if renderer, ok := r.renderers[kind]; ok {
		assets = mergeAssets(assets, renderer.VendorAssets()...)
	}
	if comp.ClientScript != "" {
		assets = mergeAssets(assets, Asset{Kind: AssetScript, URL: comp.ClientScript})
	}
	assets = mergeAssets(assets, view.Assets...)

	errs := slices.Clone(cc.Errors())
	if renderErr != nil {
		errs = append(errs, renderErr)
	}

	telemetry.LogResolveComplete(logger, cc.ID, float64(time.Since(start).Milliseconds()), len(cc.Components))
	return &Fragment{
		ID:          cc.ID,
		Component:   comp.Path,
		View:        view.Name,
		NestLevel:   nest,
		Blueprint:   cc.RenderAsBlueprint,
		ParentID:    cc.ParentID,
		BlueprintID: cc.BlueprintID,
		HTML:        out,
		Data:        cc.snapshot(),
		Assets:      assets,
		Errors:      errs,
	}, nil
}

func (r *Resolver) newContext(req Request, nest int, opts EffectiveOptions) *ComponentContext {
	cc := &ComponentContext{
		ID:                r.newID(),
		ComponentName:     req.Component,
		ViewName:          req.View,
		Params:            req.Params.clone(),
		NestLevel:         nest,
		RenderAsBlueprint: nest == 0 && !req.Fragment,
		DeviceType:        req.DeviceType,
		ServerURL:         req.ServerURL,
		Title:             req.Title,
		Locale:            req.Locale,
		Auth:              req.Auth,
		Components:        make(map[string][]byte, len(opts.Components)),
		Helpers:           opts.Helpers,
	}
	if p := req.Parent; p != nil {
		cc.DeviceType = p.DeviceType
		cc.ServerURL = p.ServerURL
		cc.Title = p.Title
		cc.Locale = p.Locale
		cc.Auth = p.Auth
		cc.ParentID = p.ID
		cc.BlueprintID = p.BlueprintID
		if cc.BlueprintID == "" {
			cc.BlueprintID = p.ID
		}
	}
	if cc.DeviceType == "" {
		cc.DeviceType = DeviceDesktop
	}
	return cc
}

type childResult struct {
	markup []byte
	assets []Asset
}

// resolveChildren resolves every declared child concurrently and stores
// its markup in cc.Components. A failed child becomes an error fragment in
// its own slot; only context cancellation is returned.
func (r *Resolver) resolveChildren(ctx context.Context, cc *ComponentContext, opts EffectiveOptions, path []Address, logger *slog.Logger) ([]Asset, error) {
	names := opts.ChildNames()
	if len(names) == 0 {
		return nil, nil
	}
	results := make([]childResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range names {
		addr := opts.Components[name]
		g.Go(func() error {
			frag, err := r.resolve(gctx, Request{
				Component: addr.Component,
				View:      addr.View,
				Params:    Params{Headers: cc.Params.Headers}.withQuery(addr.Params),
				Parent:    cc,
			}, path)
			if err == nil {
				var markup []byte
				if markup, err = frag.Markup(); err == nil {
					results[i] = childResult{markup: markup, assets: frag.Assets}
					return nil
				}
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			err = &ResolveError{Address: addr, Err: err}
			telemetry.LogChildError(logger, name, addr.String(), err)
			r.metrics.ChildErrorFragment(addr.Component)
			results[i] = childResult{
				markup: renderToBytes(ctx, ErrorFragment(addr.String(), errorKind(err), r.reason(err))),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var assets []Asset
	for i, name := range names {
		cc.Components[name] = results[i].markup
		assets = mergeAssets(assets, results[i].assets...)
	}
	return assets, nil
}

// render invokes the renderer behind the failure boundary: errors and
// panics are logged and turned into an inline error fragment.
func (r *Resolver) render(ctx context.Context, cc *ComponentContext, kind Kind, tmplErr error, logger *slog.Logger) (out []byte, rerr *RenderError) {
	addr := Address{Component: cc.ComponentName, View: cc.ViewName}
	ctx, span := r.tracer.StartRenderSpan(ctx, cc.ComponentName, string(kind))

	fail := func(err error) {
		rerr = &RenderError{Component: cc.ComponentName, View: cc.ViewName, Err: err}
		telemetry.LogRenderError(logger, cc.ComponentName, cc.ViewName, string(kind), err)
		r.metrics.RenderError(string(kind))
		out = renderToBytes(ctx, ErrorFragment(addr.String(), "render", r.reason(rerr)))
	}
	defer func() {
		if p := recover(); p != nil {
			fail(fmt.Errorf("panic: %v", p))
		}
		if rerr != nil {
			telemetry.EndSpan(span, rerr)
		} else {
			telemetry.EndSpan(span, nil)
		}
	}()

	if tmplErr != nil {
		fail(tmplErr)
		return out, rerr
	}
	renderer, ok := r.renderers[kind]
	if !ok {
		fail(fmt.Errorf("no renderer for kind %q", kind))
		return out, rerr
	}
	b, err := renderer.Render(ctx, cc)
	if err != nil {
		fail(err)
		return out, rerr
	}
	return b, nil
}

// reason is the error text shown in inline error fragments. Production
// shows the error class only.
func (r *Resolver) reason(err error) string {
	if !r.env.IsProduction() {
		return err.Error()
	}
	switch {
	case IsNotFound(err):
		return "not found"
	case IsValidation(err):
		return "invalid parameters"
	case IsDepthExceeded(err):
		return "maximum nest level exceeded"
	case errors.Is(err, ErrRenderFailed):
		return "render failed"
	default:
		return "internal error"
	}
}

// errorKind classifies err for the data-error attribute of error
// fragments.
func errorKind(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsValidation(err):
		return "validation"
	case IsDepthExceeded(err):
		return "depth_exceeded"
	case errors.Is(err, ErrRenderFailed):
		return "render"
	default:
		return "internal"
	}
}

// wrapTemplate applies development wrappers, innermost (last) first.
func wrapTemplate(tmpl string, wrappers []string) string {
	for i := len(wrappers) - 1; i >= 0; i-- {
		w := wrappers[i]
		if strings.Contains(w, ContentPlaceholder) {
			tmpl = strings.Replace(w, ContentPlaceholder, tmpl, 1)
		} else {
			tmpl = w + tmpl
		}
	}
	return tmpl
}

func chain(ancestry []Address, self Address) string {
	parts := make([]string, 0, len(ancestry)+1)
	for _, a := range ancestry {
		parts = append(parts, a.String())
	}
	return strings.Join(append(parts, self.String()), " > ")
}
