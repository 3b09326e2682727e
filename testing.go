package blueprint

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// TestResult holds the result of resolving a component for testing.
//
// Provides convenience methods for asserting on HTML content, public data,
// headers and status codes.
type TestResult struct {
	HTML       string
	StatusCode int
	Headers    http.Header

	// Fragment is set for results produced by TestResolve.
	Fragment *Fragment
}

// TestResolve resolves a component view as a top-level fragment request.
//
// Use this for unit tests of views and factories when you don't need HTTP
// mechanics. The HTML is the view's own output, without the pointer
// wrapper and payload script:
//
//	result, err := blueprint.TestResolve(resolver, "greeting", "main", blueprint.Params{})
//	if !result.HTMLContains("hi") {
//	    t.Fatal("missing greeting")
//	}
func TestResolve(r *Resolver, component, view string, params Params) (*TestResult, error) {
	return TestResolveWithContext(context.Background(), r, Request{
		Component: component,
		View:      view,
		Params:    params,
	})
}

// TestResolveWithContext resolves req with a custom context.
//
// Use this for views whose factories read request-scoped values or when
// testing timeouts:
//
//	ctx := blueprint.WithAuth(context.Background(), testUser)
//	result, err := blueprint.TestResolveWithContext(ctx, resolver, req)
func TestResolveWithContext(ctx context.Context, r *Resolver, req Request) (*TestResult, error) {
	frag, err := r.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       string(frag.HTML),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		Fragment:   frag,
	}, nil
}

// TestPreRender pre-renders a view with the given public data.
func TestPreRender(r *Resolver, component, view string, data map[string]any) (*TestResult, error) {
	out, err := NewPreRenderer(r).PreRender(context.Background(), component, view, PreRenderOptions{Data: data})
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       string(out),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestServe sends a request through the registry's handler.
//
//	result, err := blueprint.TestServe(reg, http.MethodGet, "/_c/greeting/main?fragment=1", nil)
//	if !result.IsOK() {
//	    t.Fatal("expected success")
//	}
func TestServe(reg *Registry, method, target string, body io.Reader) (*TestResult, error) {
	return NewTestRequest(method, target).WithBody(body).Execute(reg)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the HTML contains any of the given substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// HasErrorFragment checks if an inline error fragment for address was
// rendered.
func (r *TestResult) HasErrorFragment(address string) bool {
	return strings.Contains(r.HTML, `class="blueprint-error" data-component="`+address+`"`)
}

// Data returns a public data value of the resolved fragment.
func (r *TestResult) Data(key string) (any, bool) {
	if r.Fragment == nil {
		return nil, false
	}
	v, ok := r.Fragment.Data[key]
	return v, ok
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// TestRequestBuilder provides a fluent interface for building test requests.
//
//	result, err := blueprint.NewTestRequest("GET", "/_c/page/home").
//	    WithQuery("page", "2").
//	    WithHeader("Accept", "application/json").
//	    Execute(reg)
type TestRequestBuilder struct {
	method  string
	target  string
	query   url.Values
	headers map[string]string
	body    io.Reader
	ctx     context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, target string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:  method,
		target:  target,
		query:   url.Values{},
		headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithQuery adds a query parameter.
func (b *TestRequestBuilder) WithQuery(key, value string) *TestRequestBuilder {
	b.query.Add(key, value)
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithJSON sets a JSON request body.
func (b *TestRequestBuilder) WithJSON(body string) *TestRequestBuilder {
	b.headers["Content-Type"] = "application/json"
	b.body = strings.NewReader(body)
	return b
}

// WithBody sets the raw request body.
func (b *TestRequestBuilder) WithBody(body io.Reader) *TestRequestBuilder {
	b.body = body
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute executes the request against the registry's handler.
func (b *TestRequestBuilder) Execute(reg *Registry) (*TestResult, error) {
	target := b.target
	if len(b.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + b.query.Encode()
	}

	req := httptest.NewRequest(b.method, target, b.body)
	req = req.WithContext(b.ctx)
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}, nil
}
