package blueprint

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Component is a named unit of UI with one or more views.
//
// Components are declared once, when the manifest is handed to NewResolver
// or NewRegistry, and are read-only afterwards. Every request looks a
// component up by Path and one of its views by name.
//
//	blueprint.Component{
//	    Path: "greeting",
//	    Views: []blueprint.View{{
//	        Name:     "main",
//	        Template: `<p><%= context.data.msg %></p>`,
//	        Kind:     blueprint.KindEJS,
//	    }},
//	}
type Component struct {
	// Path is the unique component name.
	Path string

	// Root is the base directory for template files, relative to the
	// resolver's file system.
	Root string

	// Shared options are inherited by every view of the component.
	Shared SharedOptions

	// Development options apply only outside production.
	Development DevelopmentOptions

	// ClientScript is the URL of the component's client bundle. It is
	// added to the page's asset manifest whenever the component renders.
	ClientScript string

	Views []View
}

// View returns the named view.
func (c *Component) View(name string) (*View, bool) {
	for i := range c.Views {
		if c.Views[i].Name == name {
			return &c.Views[i], true
		}
	}
	return nil, false
}

// SharedOptions are options declared at manifest ("global") or component
// scope.
type SharedOptions struct {
	Components  map[string]Address
	Factories   []Factory
	Helpers     map[string]any
	ParamSchema *ParamSchema
	Route       *Route
}

// DevelopmentOptions carry development-only instrumentation.
type DevelopmentOptions struct {
	// ContentWrapper is markup placed around a template before rendering.
	// The template replaces the first ContentPlaceholder; a wrapper without
	// the placeholder is prepended to the template.
	ContentWrapper string
}

// ContentPlaceholder marks where a development wrapper receives content.
const ContentPlaceholder = "<!-- content -->"

// Route exposes a component view as a blueprint page at Pattern.
// Pattern follows net/http.ServeMux syntax, e.g. "GET /users/{id}".
type Route struct {
	Pattern string
	View    string
}

// View is one renderable variant of a component.
type View struct {
	Name string

	// Template is inline template content: a string, a TemplateFunc or a
	// TemplComponentFunc. Mutually exclusive with TemplateFile.
	Template any

	// TemplateFile is a path relative to the component root.
	TemplateFile string

	// Kind selects the renderer. Zero means infer it from TemplateFile's
	// extension or Template's type.
	Kind Kind

	Components  map[string]Address
	Factories   []Factory
	Helpers     map[string]any
	ParamSchema *ParamSchema
	Development DevelopmentOptions

	// Assets are extra scripts and styles this view needs.
	Assets []Asset
}

// GetTemplate returns the view's template content, reading TemplateFile
// from fsys when no inline template is declared.
func (v *View) GetTemplate(fsys fs.FS, root string) (any, error) {
	if v.Template != nil && v.TemplateFile != "" {
		return nil, fmt.Errorf("view %q declares both template and templateFile", v.Name)
	}
	if v.Template != nil {
		if s, ok := v.Template.(string); ok && strings.TrimSpace(s) == "" {
			return nil, ErrEmptyTemplate
		}
		return v.Template, nil
	}
	if v.TemplateFile == "" {
		return nil, ErrEmptyTemplate
	}
	if fsys == nil {
		return nil, fmt.Errorf("view %q: no file system for template file %q", v.Name, v.TemplateFile)
	}
	data, err := fs.ReadFile(fsys, path.Join(root, v.TemplateFile))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", v.TemplateFile, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyTemplate
	}
	return string(data), nil
}

// Address identifies a component view, optionally with static params.
type Address struct {
	Component string
	View      string
	Params    map[string]any
}

// ParseAddress parses "component/view". The last slash separates the view
// so component paths may themselves contain slashes.
func ParseAddress(s string) (Address, error) {
	i := strings.LastIndex(s, "/")
	if i <= 0 || i == len(s)-1 {
		return Address{}, fmt.Errorf("%w: address %q", ErrInvalidFormat, s)
	}
	return Address{Component: s[:i], View: s[i+1:]}, nil
}

// MustParseAddress is like ParseAddress but panics on malformed input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return a.Component + "/" + a.View
}

// AssetKind distinguishes scripts from stylesheets.
type AssetKind string

const (
	AssetScript AssetKind = "script"
	AssetStyle  AssetKind = "style"
)

// Asset is a script or stylesheet reference.
type Asset struct {
	Kind AssetKind `json:"kind"`
	URL  string    `json:"url"`
}

// mergeAssets appends assets not already present, keeping first-seen order.
func mergeAssets(dst []Asset, src ...Asset) []Asset {
	for _, a := range src {
		dup := false
		for _, d := range dst {
			if d == a {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, a)
		}
	}
	return dst
}
