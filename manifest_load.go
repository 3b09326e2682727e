package blueprint

import (
	"fmt"

	"github.com/pthm/blueprint/lib/manifestfile"
)

// Bindings supply the Go values a manifest file refers to by name.
type Bindings struct {
	Factories map[string]FactoryFunc
	Helpers   map[string]any

	// Templates holds callables for views of kind func or templ, keyed by
	// the name given as the view's template.
	Templates map[string]any

	Controllers []Controller
	Services    []Service
}

// LoadManifest reads a manifest file and binds it.
func LoadManifest(path string, b Bindings) (Manifest, error) {
	f, err := manifestfile.Load(path)
	if err != nil {
		return Manifest{}, err
	}
	return BindManifest(f, b)
}

// BindManifest converts a parsed manifest file, resolving every factory,
// helper and callable template name against b. Unknown names are errors.
func BindManifest(f *manifestfile.Manifest, b Bindings) (Manifest, error) {
	m := Manifest{
		AssetDirectoryRoots: f.AssetDirectoryRoots,
		Development:         DevelopmentOptions{ContentWrapper: f.Development.ContentWrapper},
		Controllers:         b.Controllers,
		Services:            b.Services,
	}
	var err error
	if m.Shared, err = b.shared(f.Shared); err != nil {
		return Manifest{}, fmt.Errorf("blueprint: shared: %w", err)
	}

	for _, fc := range f.Components {
		c := Component{
			Path:         fc.Path,
			Root:         fc.Root,
			ClientScript: fc.ClientScript,
			Development:  DevelopmentOptions{ContentWrapper: fc.Development.ContentWrapper},
		}
		if c.Shared, err = b.shared(fc.Shared); err != nil {
			return Manifest{}, fmt.Errorf("blueprint: component %q: %w", fc.Path, err)
		}
		for _, fv := range fc.Views {
			v, err := b.view(fv)
			if err != nil {
				return Manifest{}, fmt.Errorf("blueprint: component %q: view %q: %w", fc.Path, fv.Name, err)
			}
			c.Views = append(c.Views, v)
		}
		m.Components = append(m.Components, c)
	}
	return m, nil
}

func (b Bindings) shared(s manifestfile.Shared) (SharedOptions, error) {
	var (
		out SharedOptions
		err error
	)
	if out.Components, err = addresses(s.Components); err != nil {
		return out, err
	}
	if out.Factories, err = b.factories(s.Factories); err != nil {
		return out, err
	}
	if out.Helpers, err = b.helpers(s.Helpers); err != nil {
		return out, err
	}
	if out.ParamSchema, err = paramSchema(s.ParamSchema); err != nil {
		return out, err
	}
	if s.Route != nil {
		out.Route = &Route{Pattern: s.Route.Pattern, View: s.Route.View}
	}
	return out, nil
}

func (b Bindings) view(fv manifestfile.View) (View, error) {
	v := View{
		Name:         fv.Name,
		TemplateFile: fv.TemplateFile,
		Kind:         Kind(fv.Kind),
		Development:  DevelopmentOptions{ContentWrapper: fv.Development.ContentWrapper},
	}
	switch v.Kind {
	case "", KindHTML, KindText, KindEJS:
		if fv.Template != "" {
			v.Template = fv.Template
		}
	case KindFunc, KindTempl:
		fn, ok := b.Templates[fv.Template]
		if !ok {
			return v, fmt.Errorf("unknown template binding %q", fv.Template)
		}
		v.Template = fn
	default:
		return v, fmt.Errorf("unknown kind %q", fv.Kind)
	}

	var err error
	if v.Components, err = addresses(fv.Components); err != nil {
		return v, err
	}
	if v.Factories, err = b.factories(fv.Factories); err != nil {
		return v, err
	}
	if v.Helpers, err = b.helpers(fv.Helpers); err != nil {
		return v, err
	}
	if v.ParamSchema, err = paramSchema(fv.ParamSchema); err != nil {
		return v, err
	}
	for _, a := range fv.Assets {
		v.Assets = append(v.Assets, Asset{Kind: AssetKind(a.Kind), URL: a.URL})
	}
	return v, nil
}

func (b Bindings) factories(in []manifestfile.Factory) ([]Factory, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]Factory, 0, len(in))
	for _, f := range in {
		fn, ok := b.Factories[f.Name]
		if !ok {
			return nil, fmt.Errorf("unknown factory %q", f.Name)
		}
		out = append(out, Factory{Name: f.Name, Priority: f.Priority, Func: fn})
	}
	return out, nil
}

func (b Bindings) helpers(names []string) (map[string]any, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		h, ok := b.Helpers[name]
		if !ok {
			return nil, fmt.Errorf("unknown helper %q", name)
		}
		out[name] = h
	}
	return out, nil
}

func addresses(in map[string]string) (map[string]Address, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]Address, len(in))
	for name, s := range in {
		a, err := ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("child %q: %w", name, err)
		}
		out[name] = a
	}
	return out, nil
}

// paramSchema splits a {headers, path, query, body} document into sections.
func paramSchema(in map[string]any) (*ParamSchema, error) {
	if len(in) == 0 {
		return nil, nil
	}
	s := &ParamSchema{}
	for key, raw := range in {
		section, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("param schema section %q must be an object", key)
		}
		switch key {
		case "headers":
			s.Headers = section
		case "path":
			s.Path = section
		case "query":
			s.Query = section
		case "body":
			s.Body = section
		default:
			return nil, fmt.Errorf("unknown param schema section %q", key)
		}
	}
	return s, nil
}
