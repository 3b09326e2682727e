package blueprint

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/a-h/templ"
)

// Renderer converts a populated ComponentContext into a fragment.
//
// One implementation exists per template technology. The resolver picks
// one per view from the view's Kind and calls it through a guard, so a
// returned error (or a panic) never escapes the render step: it is logged
// and replaced by a visible inline error fragment.
//
// Child fragments arrive in cc.Components as bytes; renderers convert them
// to strings before interpolating.
//
//	type MarkdownRenderer struct{}
//
//	func (MarkdownRenderer) Render(ctx context.Context, cc *blueprint.ComponentContext) ([]byte, error) {
//	    src, _ := cc.Template.(string)
//	    return markdown.Convert(src), nil
//	}
//
//	func (MarkdownRenderer) VendorAssets() []blueprint.Asset { return nil }
type Renderer interface {
	Render(ctx context.Context, cc *ComponentContext) ([]byte, error)

	// VendorAssets are third-party scripts and styles the renderer needs
	// on the page. They are merged into the page's asset manifest.
	VendorAssets() []Asset
}

// Kind is the closed set of template technologies.
type Kind string

const (
	KindHTML  Kind = "html"
	KindText  Kind = "text"
	KindEJS   Kind = "ejs"
	KindTempl Kind = "templ"
	KindFunc  Kind = "func"
)

// TemplateFunc is a callable template producing markup directly.
type TemplateFunc func(ctx context.Context, cc *ComponentContext) (string, error)

// TemplComponentFunc builds a templ component from the context.
type TemplComponentFunc func(cc *ComponentContext) templ.Component

// KindFor decides which renderer handles a view whose resolved template is
// tmpl. An explicit Kind wins, then the template file extension. Inline
// strings containing EJS tags ("<%") are EJS, other strings are HTML.
func KindFor(v *View, tmpl any) Kind {
	if v.Kind != "" {
		return v.Kind
	}
	if v.TemplateFile != "" {
		switch strings.ToLower(path.Ext(v.TemplateFile)) {
		case ".tmpl", ".txt":
			return KindText
		case ".ejs":
			return KindEJS
		default:
			return KindHTML
		}
	}
	switch t := tmpl.(type) {
	case TemplateFunc, func(context.Context, *ComponentContext) (string, error):
		return KindFunc
	case templ.Component, TemplComponentFunc, func(*ComponentContext) templ.Component:
		return KindTempl
	case string:
		if strings.Contains(t, "<%") {
			return KindEJS
		}
		return KindHTML
	default:
		return KindHTML
	}
}

// isCallable reports whether a template cannot be string-wrapped before
// rendering.
func isCallable(tmpl any) bool {
	_, ok := tmpl.(string)
	return !ok
}

// Controller is an HTTP endpoint mounted next to the component routes.
type Controller interface {
	http.Handler
	// Pattern is a net/http.ServeMux pattern such as "POST /api/cart".
	Pattern() string
}

// Service is a long-lived dependency started and stopped with the
// registry.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
