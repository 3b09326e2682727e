package blueprint

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"reflect"
	"sync"
	texttemplate "text/template"
)

// TemplateData is what html/template and text/template views execute
// against.
//
//	<h1>{{.Title}}</h1>
//	<p>{{.Data.msg}}</p>
//	{{component "footer"}}
type TemplateData struct {
	ID         string
	Component  string
	View       string
	Data       map[string]any
	Params     Params
	Components map[string]htmltemplate.HTML
	NestLevel  int
	Blueprint  bool
	Device     DeviceType
	ServerURL  string
	Title      string
	Locale     string
	Helpers    map[string]any
}

// NewTemplateData builds the template view of a context. Child fragments
// are converted to strings here.
func NewTemplateData(cc *ComponentContext) TemplateData {
	children := make(map[string]htmltemplate.HTML, len(cc.Components))
	for name, frag := range cc.Components {
		children[name] = htmltemplate.HTML(frag)
	}
	return TemplateData{
		ID:         cc.ID,
		Component:  cc.ComponentName,
		View:       cc.ViewName,
		Data:       cc.PublicData(),
		Params:     cc.Params,
		Components: children,
		NestLevel:  cc.NestLevel,
		Blueprint:  cc.RenderAsBlueprint,
		Device:     cc.DeviceType,
		ServerURL:  cc.ServerURL,
		Title:      cc.Title,
		Locale:     cc.Locale,
		Helpers:    cc.Helpers,
	}
}

// funcMap returns the callable helpers plus the built-in component func.
func funcMap(cc *ComponentContext) map[string]any {
	fm := map[string]any{
		"component": func(name string) htmltemplate.HTML {
			return htmltemplate.HTML(cc.Components[name])
		},
	}
	for name, h := range cc.Helpers {
		if reflect.ValueOf(h).Kind() == reflect.Func {
			fm[name] = h
		}
	}
	return fm
}

type cacheKey struct {
	component string
	view      string
	source    string
}

// HTMLRenderer renders html/template views. Parsed templates are cached per
// component view and source, since a view's helpers never change after the
// manifest is loaded.
type HTMLRenderer struct {
	Assets []Asset
	cache  sync.Map // cacheKey -> *htmltemplate.Template
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, cc *ComponentContext) ([]byte, error) {
	src, ok := cc.Template.(string)
	if !ok {
		return nil, fmt.Errorf("html renderer: template is %T, want string", cc.Template)
	}
	key := cacheKey{cc.ComponentName, cc.ViewName, src}
	var t *htmltemplate.Template
	if cached, ok := r.cache.Load(key); ok {
		t = cached.(*htmltemplate.Template)
	} else {
		parsed, err := htmltemplate.New(key.component + "/" + key.view).Funcs(funcMap(cc)).Parse(src)
		if err != nil {
			return nil, err
		}
		r.cache.Store(key, parsed)
		t = parsed
	}

	// Funcs are rebound per execution so the component func sees this
	// context's children.
	clone, err := t.Clone()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := clone.Funcs(funcMap(cc)).Execute(&buf, NewTemplateData(cc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VendorAssets implements Renderer.
func (r *HTMLRenderer) VendorAssets() []Asset {
	return r.Assets
}

// TextRenderer renders text/template views. Output is not escaped.
type TextRenderer struct {
	Assets []Asset
}

// Render implements Renderer.
func (r *TextRenderer) Render(ctx context.Context, cc *ComponentContext) ([]byte, error) {
	src, ok := cc.Template.(string)
	if !ok {
		return nil, fmt.Errorf("text renderer: template is %T, want string", cc.Template)
	}
	t, err := texttemplate.New(cc.ComponentName + "/" + cc.ViewName).Funcs(funcMap(cc)).Parse(src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, NewTemplateData(cc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VendorAssets implements Renderer.
func (r *TextRenderer) VendorAssets() []Asset {
	return r.Assets
}
