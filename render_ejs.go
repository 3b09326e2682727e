package blueprint

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"reflect"
	"strings"
)

// EJSRenderer renders EJS-style interpolation templates:
//
//	<%= context.data.msg %>        escaped output
//	<%- context.components.footer %> raw output
//	<%# a comment %>               dropped
//
// Expressions are dotted paths rooted at "context" (the prefix is
// optional). Unknown paths render as the empty string. Control flow is not
// supported; use KindHTML for templates that need it.
type EJSRenderer struct {
	Assets []Asset
}

// Render implements Renderer.
func (r *EJSRenderer) Render(ctx context.Context, cc *ComponentContext) ([]byte, error) {
	src, ok := cc.Template.(string)
	if !ok {
		return nil, fmt.Errorf("ejs renderer: template is %T, want string", cc.Template)
	}
	root := ejsRoot(cc)

	var buf bytes.Buffer
	rest := src
	for {
		open := strings.Index(rest, "<%")
		if open < 0 {
			buf.WriteString(rest)
			break
		}
		buf.WriteString(rest[:open])
		rest = rest[open+2:]

		end := strings.Index(rest, "%>")
		if end < 0 {
			return nil, fmt.Errorf("ejs renderer: unclosed tag at offset %d", len(src)-len(rest)-2)
		}
		tag := rest[:end]
		rest = rest[end+2:]

		if tag == "" {
			continue
		}
		mode, expr := tag[0], strings.TrimSpace(tag[1:])
		switch mode {
		case '=':
			buf.WriteString(html.EscapeString(ejsString(ejsLookup(root, expr))))
		case '-':
			buf.WriteString(ejsString(ejsLookup(root, expr)))
		case '#':
		default:
			return nil, fmt.Errorf("ejs renderer: scriptlet %q not supported", strings.TrimSpace(tag))
		}
	}
	return buf.Bytes(), nil
}

// VendorAssets implements Renderer.
func (r *EJSRenderer) VendorAssets() []Asset {
	return r.Assets
}

func ejsRoot(cc *ComponentContext) map[string]any {
	children := make(map[string]string, len(cc.Components))
	for name, frag := range cc.Components {
		children[name] = string(frag)
	}
	return map[string]any{
		"id":                cc.ID,
		"componentName":     cc.ComponentName,
		"viewName":          cc.ViewName,
		"data":              cc.PublicData(),
		"params":            cc.Params,
		"components":        children,
		"nestLevel":         cc.NestLevel,
		"renderAsBlueprint": cc.RenderAsBlueprint,
		"deviceType":        string(cc.DeviceType),
		"serverUrl":         cc.ServerURL,
		"title":             cc.Title,
		"locale":            cc.Locale,
		"helpers":           cc.Helpers,
	}
}

func ejsLookup(root map[string]any, expr string) any {
	expr = strings.TrimPrefix(expr, "context.")
	if expr == "context" {
		return nil
	}
	var cur any = root
	for _, part := range strings.Split(expr, ".") {
		cur = ejsField(cur, part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func ejsField(v any, name string) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		// Accept the lower-camel spelling of exported fields.
		f := rv.FieldByNameFunc(func(field string) bool {
			return strings.EqualFold(field, name)
		})
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
	return nil
}

func ejsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}
