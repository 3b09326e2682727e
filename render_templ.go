package blueprint

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// TemplRenderer renders views whose template is a templ component, or a
// function building one from the context.
//
//	blueprint.View{
//	    Name: "main",
//	    Template: blueprint.TemplComponentFunc(func(cc *blueprint.ComponentContext) templ.Component {
//	        return cardTemplate(cc.PublicData())
//	    }),
//	}
type TemplRenderer struct {
	Assets []Asset
}

// Render implements Renderer.
func (r *TemplRenderer) Render(ctx context.Context, cc *ComponentContext) ([]byte, error) {
	var comp templ.Component
	switch t := cc.Template.(type) {
	case templ.Component:
		comp = t
	case TemplComponentFunc:
		comp = t(cc)
	case func(*ComponentContext) templ.Component:
		comp = t(cc)
	default:
		return nil, fmt.Errorf("templ renderer: template is %T, want templ.Component", cc.Template)
	}
	if comp == nil {
		return nil, ErrEmptyTemplate
	}

	ctx = withChildren(ctx, cc.Components)
	var buf bytes.Buffer
	if err := comp.Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VendorAssets implements Renderer.
func (r *TemplRenderer) VendorAssets() []Asset {
	return r.Assets
}

// FuncRenderer renders views whose template is a Go callable.
type FuncRenderer struct {
	Assets []Asset
}

// Render implements Renderer.
func (r *FuncRenderer) Render(ctx context.Context, cc *ComponentContext) ([]byte, error) {
	var fn TemplateFunc
	switch t := cc.Template.(type) {
	case TemplateFunc:
		fn = t
	case func(context.Context, *ComponentContext) (string, error):
		fn = t
	default:
		return nil, fmt.Errorf("func renderer: template is %T, want TemplateFunc", cc.Template)
	}
	out, err := fn(ctx, cc)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// VendorAssets implements Renderer.
func (r *FuncRenderer) VendorAssets() []Asset {
	return r.Assets
}

type childrenKey struct{}

func withChildren(ctx context.Context, children map[string][]byte) context.Context {
	return context.WithValue(ctx, childrenKey{}, children)
}

// Child returns a templ component that writes the named child fragment.
// Use it inside templ views:
//
//	@blueprint.Child("footer")
func Child(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children, _ := ctx.Value(childrenKey{}).(map[string][]byte)
		_, err := w.Write(children[name])
		return err
	})
}

// ErrorFragment returns the inline markup substituted for a failed render
// or child resolution. kind is one of not_found, validation,
// depth_exceeded, render or internal.
func ErrorFragment(address, kind, reason string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, fmt.Sprintf(
			`<div class="blueprint-error" data-component="%s" data-error="%s">Error rendering %s: %s</div>`,
			html.EscapeString(address), html.EscapeString(kind), html.EscapeString(address), html.EscapeString(reason)))
		return err
	})
}

// DevPanel returns the development panel appended to blueprints whose
// template is callable and could not be wrapped before rendering.
func DevPanel(address, id string, nestLevel int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, fmt.Sprintf(
			`<div class="blueprint-dev-panel" data-dev-panel="%s" data-id="%s">%s (nest level %d)</div>`,
			html.EscapeString(address), html.EscapeString(id), html.EscapeString(address), nestLevel))
		return err
	})
}

// renderToBytes renders a templ component into memory.
func renderToBytes(ctx context.Context, c templ.Component) []byte {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return []byte(html.EscapeString(err.Error()))
	}
	return buf.Bytes()
}
