package blueprint

import (
	"maps"
	"strings"
)

// DeviceType classifies the requesting device.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceBot     DeviceType = "bot"
)

// ParseDeviceType maps a free-form value onto a DeviceType, defaulting to
// DeviceDesktop.
func ParseDeviceType(s string) DeviceType {
	switch DeviceType(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceMobile:
		return DeviceMobile
	case DeviceTablet:
		return DeviceTablet
	case DeviceBot:
		return DeviceBot
	default:
		return DeviceDesktop
	}
}

// Params are the inbound request parameters a view can validate and read.
type Params struct {
	Headers map[string]any `json:"headers,omitempty"`
	Path    map[string]any `json:"path,omitempty"`
	Query   map[string]any `json:"query,omitempty"`
	Body    map[string]any `json:"body,omitempty"`
}

// clone returns a copy whose maps can be modified independently.
func (p Params) clone() Params {
	return Params{
		Headers: maps.Clone(p.Headers),
		Path:    maps.Clone(p.Path),
		Query:   maps.Clone(p.Query),
		Body:    maps.Clone(p.Body),
	}
}

// withQuery returns a copy of p with extra query values layered on top.
func (p Params) withQuery(extra map[string]any) Params {
	out := p.clone()
	if len(extra) == 0 {
		return out
	}
	if out.Query == nil {
		out.Query = make(map[string]any, len(extra))
	}
	maps.Copy(out.Query, extra)
	return out
}

// ComponentContext is the mutable working record of one render pass.
//
// A context is created fresh for every request and every child resolution,
// is owned exclusively by the resolution that created it, and is discarded
// once the fragment is packaged. Factories mutate it; the renderer reads it.
type ComponentContext struct {
	// ID correlates the rendered DOM node with its data payload.
	ID string

	ComponentName string
	ViewName      string

	// Template is the template the renderer will receive: a string or a
	// callable.
	Template any

	Params    Params
	NestLevel int

	// RenderAsBlueprint is true only for the top-level, document-producing
	// request (NestLevel 0).
	RenderAsBlueprint bool

	DeviceType DeviceType
	ServerURL  string
	Title      string
	Locale     string
	Auth       any

	// ParentID and BlueprintID let the client side address siblings and
	// the enclosing blueprint. Both are empty for the blueprint itself.
	ParentID    string
	BlueprintID string

	// Components maps child names to already-rendered fragments.
	Components map[string][]byte

	Helpers map[string]any

	// DevPanel is set when development instrumentation could not wrap a
	// callable template and a panel is injected after rendering instead.
	DevPanel bool

	data    map[string]any
	private map[string]any
	errors  []error
}

// SetPublicData sets a value that is serialized into the client payload.
func (c *ComponentContext) SetPublicData(key string, value any) {
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

// MergePublicData sets every entry of m as public data.
func (c *ComponentContext) MergePublicData(m map[string]any) {
	if c.data == nil {
		c.data = make(map[string]any, len(m))
	}
	maps.Copy(c.data, m)
}

// PublicData returns the public data map. Callers must not retain it past
// the render pass.
func (c *ComponentContext) PublicData() map[string]any {
	if c.data == nil {
		c.data = make(map[string]any)
	}
	return c.data
}

// Get returns a public data value.
func (c *ComponentContext) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// SetPrivateData stores server-only data. It is visible to factories and
// renderers but never serialized.
func (c *ComponentContext) SetPrivateData(key string, value any) {
	if c.private == nil {
		c.private = make(map[string]any)
	}
	c.private[key] = value
}

// PrivateData returns a server-only value.
func (c *ComponentContext) PrivateData(key string) (any, bool) {
	v, ok := c.private[key]
	return v, ok
}

// Errors returns the factory errors absorbed during this render pass.
func (c *ComponentContext) Errors() []error {
	return c.errors
}

// Child returns the rendered fragment for a child name as a string.
func (c *ComponentContext) Child(name string) string {
	return string(c.Components[name])
}

// snapshot returns a shallow copy of the public data for packaging.
func (c *ComponentContext) snapshot() map[string]any {
	return maps.Clone(c.PublicData())
}
