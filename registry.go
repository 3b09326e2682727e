package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/pthm/blueprint/lib/telemetry"
)

// ParamsQueryKey is the query parameter carrying signed address params.
const ParamsQueryKey = "p"

// Registry exposes a manifest over HTTP: component routes, custom route
// patterns, controllers and asset directories.
type Registry struct {
	*Resolver

	mux   *http.ServeMux
	codec *paramCodec

	// OnError writes the response for errors that abort a request.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)

	mu      sync.Mutex
	routes  map[string]string
	started []Service
}

// NewRegistry builds the resolver and routes for m. Panics if the manifest
// is invalid or two routes collide.
func NewRegistry(m Manifest, opts ...Option) *Registry {
	res, err := NewResolver(m, opts...)
	if err != nil {
		panic(fmt.Sprintf("blueprint: invalid manifest: %v", err))
	}
	codec, err := newParamCodec(res.key, res.paramMode)
	if err != nil {
		panic(fmt.Sprintf("blueprint: failed to create param codec: %v", err))
	}

	reg := &Registry{
		Resolver: res,
		mux:      http.NewServeMux(),
		codec:    codec,
		routes:   make(map[string]string),
	}
	reg.OnError = reg.defaultOnError

	reg.handle(res.prefix, "component routes", http.HandlerFunc(reg.serveComponent))
	for i := range res.manifest.Components {
		c := &res.manifest.Components[i]
		if rt := c.Shared.Route; rt != nil && rt.Pattern != "" {
			reg.handle(rt.Pattern, c.Path, reg.routeHandler(c.Path, rt))
		}
	}
	for _, ctl := range res.manifest.Controllers {
		reg.handle(ctl.Pattern(), fmt.Sprintf("controller %T", ctl), ctl)
	}
	if roots := res.manifest.AssetDirectoryRoots; len(roots) > 0 {
		reg.handle(DefaultAssetPrefix, "assets",
			http.StripPrefix(DefaultAssetPrefix, http.FileServerFS(newRootsFS(roots))))
	}
	return reg
}

func (reg *Registry) handle(pattern, owner string, h http.Handler) {
	if prev, exists := reg.routes[pattern]; exists {
		panic(fmt.Sprintf("blueprint: route collision for %q between %s and %s", pattern, prev, owner))
	}
	reg.routes[pattern] = owner
	reg.mux.Handle(pattern, h)
}

// Routes returns every registered ServeMux pattern in sorted order.
func (reg *Registry) Routes() []string {
	return slices.Sorted(maps.Keys(reg.routes))
}

// Handler returns the HTTP handler serving every registered route.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mutating requests must come from HTMX or carry a JSON body,
		// neither of which a cross-site form can produce.
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !IsHTMX(r) && !isJSONBody(r) {
			http.Error(w, "Forbidden: HTMX or JSON request required", http.StatusForbidden)
			return
		}
		reg.mux.ServeHTTP(w, r)
	})
}

// FragmentURL returns the URL serving addr as a fragment. Address params are
// signed into the p query parameter so they cannot be altered by clients.
func (reg *Registry) FragmentURL(addr Address) (string, error) {
	u := reg.prefix + addr.Component + "/" + addr.View
	if len(addr.Params) == 0 {
		return u, nil
	}
	token, err := reg.codec.seal(addr.Params)
	if err != nil {
		return "", err
	}
	return u + "?" + url.Values{ParamsQueryKey: {token}}.Encode(), nil
}

// Start starts every manifest service in declaration order. If one fails,
// the already started services are stopped again.
func (reg *Registry) Start(ctx context.Context) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, svc := range reg.manifest.Services {
		reg.logger.Info("starting service", slog.String("service", svc.Name()))
		if err := svc.Start(ctx); err != nil {
			stopErr := reg.stopLocked(ctx)
			return errors.Join(fmt.Errorf("blueprint: start service %s: %w", svc.Name(), err), stopErr)
		}
		reg.started = append(reg.started, svc)
	}
	return nil
}

// Stop stops started services in reverse order.
func (reg *Registry) Stop(ctx context.Context) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.stopLocked(ctx)
}

func (reg *Registry) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(reg.started) - 1; i >= 0; i-- {
		svc := reg.started[i]
		reg.logger.Info("stopping service", slog.String("service", svc.Name()))
		if err := svc.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("blueprint: stop service %s: %w", svc.Name(), err))
		}
	}
	reg.started = nil
	return errors.Join(errs...)
}

// serveComponent handles {prefix}{component}/{view}.
func (reg *Registry) serveComponent(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, reg.prefix)
	addr, err := ParseAddress(rest)
	if err != nil {
		reg.OnError(w, r, fmt.Errorf("%w: %v", ErrNotFound, err))
		return
	}
	reg.serve(w, r, addr.Component, addr.View, nil)
}

// routeHandler serves a component's custom route, forwarding the
// pattern's wildcards as path params.
func (reg *Registry) routeHandler(component string, rt *Route) http.Handler {
	names := wildcards(rt.Pattern)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := make(map[string]any, len(names))
		for _, n := range names {
			path[n] = r.PathValue(n)
		}
		reg.serve(w, r, component, rt.View, path)
	})
}

func (reg *Registry) serve(w http.ResponseWriter, r *http.Request, component, view string, path map[string]any) {
	ctx := r.Context()
	if reg.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reg.requestTimeout)
		defer cancel()
	}
	logger := reg.logger.With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	ctx = telemetry.WithLogger(ctx, logger)

	params, err := reg.requestParams(r, path)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	frag, err := reg.Resolve(ctx, Request{
		Component:  component,
		View:       view,
		Params:     params,
		Fragment:   IsFragmentRequest(r),
		DeviceType: DetectDevice(r),
		ServerURL:  ServerURL(r),
		Title:      component,
		Locale:     RequestLocale(r),
		Auth:       AuthFrom(r.Context()),
	})
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	if !reg.env.IsProduction() && WantsJSON(r) {
		writeJSON(w, http.StatusOK, fragmentJSON(frag))
		return
	}

	var body []byte
	if frag.Blueprint {
		body, err = frag.Document(component)
	} else {
		body, err = frag.Markup()
	}
	if err != nil {
		reg.OnError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		logger.Debug("write response", slog.String("error", err.Error()))
	}
}

// requestParams collects headers, path values, query values, signed params
// and the request body. Signed params override plain query values.
func (reg *Registry) requestParams(r *http.Request, path map[string]any) (Params, error) {
	p := Params{
		Headers: make(map[string]any, len(r.Header)),
		Path:    path,
		Query:   make(map[string]any),
	}
	for k, v := range r.Header {
		p.Headers[strings.ToLower(k)] = v[0]
	}
	for k, v := range r.URL.Query() {
		if k == ParamsQueryKey || k == "fragment" {
			continue
		}
		p.Query[k] = flatten(v)
	}
	if token := r.URL.Query().Get(ParamsQueryKey); token != "" {
		signed, err := reg.codec.open(token)
		if err != nil {
			return Params{}, err
		}
		for k, v := range signed {
			p.Query[k] = v
		}
	}

	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return p, nil
	}
	if isJSONBody(r) {
		var body map[string]any
		if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return Params{}, fmt.Errorf("%w: request body: %v", ErrInvalidFormat, err)
		}
		p.Body = body
		return p, nil
	}
	if err := r.ParseForm(); err != nil {
		return Params{}, fmt.Errorf("%w: form body: %v", ErrInvalidFormat, err)
	}
	if len(r.PostForm) > 0 {
		p.Body = make(map[string]any, len(r.PostForm))
		for k, v := range r.PostForm {
			p.Body[k] = flatten(v)
		}
	}
	return p, nil
}

func flatten(v []string) any {
	if len(v) == 1 {
		return v[0]
	}
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}

func isJSONBody(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// wildcards returns the wildcard names of a ServeMux pattern.
func wildcards(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := strings.TrimSuffix(strings.TrimSuffix(seg[1:len(seg)-1], "..."), "$")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

type fragmentResponse struct {
	ID        string         `json:"id"`
	Component string         `json:"component"`
	View      string         `json:"view"`
	NestLevel int            `json:"nestLevel"`
	HTML      string         `json:"html"`
	Data      map[string]any `json:"data"`
	Assets    []Asset        `json:"assets"`
	Errors    []string       `json:"errors,omitempty"`
}

func fragmentJSON(f *Fragment) fragmentResponse {
	out := fragmentResponse{
		ID:        f.ID,
		Component: f.Component,
		View:      f.View,
		NestLevel: f.NestLevel,
		HTML:      string(f.HTML),
		Data:      f.Data,
		Assets:    f.Assets,
	}
	for _, err := range f.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

type validationResponse struct {
	Error     string       `json:"error"`
	Component string       `json:"component"`
	View      string       `json:"view"`
	Fields    []FieldError `json:"fields"`
}

func (reg *Registry) defaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:     "validation",
			Component: verr.Component,
			View:      verr.View,
			Fields:    verr.Fields,
		})
		return
	}
	switch {
	case IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case IsDecryptionError(err), errors.Is(err, ErrInvalidFormat):
		http.Error(w, "Bad request", http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Gateway timeout", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		reg.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rootsFS serves the first asset root containing a file.
type rootsFS []fs.FS

func newRootsFS(roots []string) rootsFS {
	out := make(rootsFS, len(roots))
	for i, root := range roots {
		out[i] = os.DirFS(root)
	}
	return out
}

func (r rootsFS) Open(name string) (fs.File, error) {
	for _, fsys := range r {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
