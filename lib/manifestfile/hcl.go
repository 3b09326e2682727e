package manifestfile

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// HCL layout:
//
//	asset_directory_roots = ["public"]
//
//	shared {
//	  factory "session" { priority = 0 }
//	}
//
//	component "page" {
//	  root = "components/page"
//	  view "home" {
//	    template_file = "home.html"
//	    components    = { footer = "footer/main" }
//	    param_schema  = <<EOT
//	    {"query": {"type": "object"}}
//	    EOT
//	    asset "script" { url = "/_assets/page.js" }
//	  }
//	}
type hclFile struct {
	AssetDirectoryRoots []string        `hcl:"asset_directory_roots,optional"`
	Shared              *hclShared      `hcl:"shared,block"`
	Development         *hclDevelopment `hcl:"development,block"`
	Components          []*hclComponent `hcl:"component,block"`
}

type hclShared struct {
	Components  map[string]string `hcl:"components,optional"`
	Helpers     []string          `hcl:"helpers,optional"`
	ParamSchema string            `hcl:"param_schema,optional"`
	Factories   []*hclFactory     `hcl:"factory,block"`
	Route       *hclRoute         `hcl:"route,block"`
}

type hclFactory struct {
	Name     string `hcl:"name,label"`
	Priority int    `hcl:"priority,optional"`
}

type hclRoute struct {
	Pattern string `hcl:"pattern"`
	View    string `hcl:"view"`
}

type hclDevelopment struct {
	ContentWrapper string `hcl:"content_wrapper,optional"`
}

type hclComponent struct {
	Path         string          `hcl:"path,label"`
	Root         string          `hcl:"root,optional"`
	ClientScript string          `hcl:"client_script,optional"`
	Shared       *hclShared      `hcl:"shared,block"`
	Development  *hclDevelopment `hcl:"development,block"`
	Views        []*hclView      `hcl:"view,block"`
}

type hclView struct {
	Name         string            `hcl:"name,label"`
	Template     string            `hcl:"template,optional"`
	TemplateFile string            `hcl:"template_file,optional"`
	Kind         string            `hcl:"kind,optional"`
	Components   map[string]string `hcl:"components,optional"`
	Helpers      []string          `hcl:"helpers,optional"`
	ParamSchema  string            `hcl:"param_schema,optional"`
	Factories    []*hclFactory     `hcl:"factory,block"`
	Development  *hclDevelopment   `hcl:"development,block"`
	Assets       []*hclAsset       `hcl:"asset,block"`
}

type hclAsset struct {
	Kind string `hcl:"kind,label"`
	URL  string `hcl:"url"`
}

// FromHCL parses HCL data. filename is used in diagnostics.
func FromHCL(data []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	m := &Manifest{AssetDirectoryRoots: parsed.AssetDirectoryRoots}
	var err error
	if m.Shared, err = parsed.Shared.convert(); err != nil {
		return nil, fmt.Errorf("shared: %w", err)
	}
	m.Development = parsed.Development.convert()

	for _, hc := range parsed.Components {
		c := Component{
			Path:         hc.Path,
			Root:         hc.Root,
			ClientScript: hc.ClientScript,
			Development:  hc.Development.convert(),
		}
		if c.Shared, err = hc.Shared.convert(); err != nil {
			return nil, fmt.Errorf("component %q: shared: %w", hc.Path, err)
		}
		for _, hv := range hc.Views {
			v := View{
				Name:         hv.Name,
				Template:     hv.Template,
				TemplateFile: hv.TemplateFile,
				Kind:         hv.Kind,
				Components:   hv.Components,
				Helpers:      hv.Helpers,
				Factories:    convertFactories(hv.Factories),
				Development:  hv.Development.convert(),
			}
			if v.ParamSchema, err = decodeSchema(hv.ParamSchema); err != nil {
				return nil, fmt.Errorf("component %q: view %q: %w", hc.Path, hv.Name, err)
			}
			for _, a := range hv.Assets {
				v.Assets = append(v.Assets, Asset{Kind: a.Kind, URL: a.URL})
			}
			c.Views = append(c.Views, v)
		}
		m.Components = append(m.Components, c)
	}
	return m, nil
}

func (s *hclShared) convert() (Shared, error) {
	if s == nil {
		return Shared{}, nil
	}
	out := Shared{
		Components: s.Components,
		Helpers:    s.Helpers,
		Factories:  convertFactories(s.Factories),
	}
	if s.Route != nil {
		out.Route = &Route{Pattern: s.Route.Pattern, View: s.Route.View}
	}
	var err error
	out.ParamSchema, err = decodeSchema(s.ParamSchema)
	return out, err
}

func (d *hclDevelopment) convert() Development {
	if d == nil {
		return Development{}
	}
	return Development{ContentWrapper: d.ContentWrapper}
}

func convertFactories(in []*hclFactory) []Factory {
	out := make([]Factory, 0, len(in))
	for _, f := range in {
		out = append(out, Factory{Name: f.Name, Priority: f.Priority})
	}
	return out
}

// decodeSchema parses a param_schema attribute, which holds JSON.
func decodeSchema(src string) (map[string]any, error) {
	if src == "" {
		return nil, nil
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(src), &schema); err != nil {
		return nil, fmt.Errorf("param_schema: %w", err)
	}
	return schema, nil
}
