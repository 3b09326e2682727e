// Package manifestfile reads declarative manifest files.
//
// A file describes components, views, child addresses, factory and helper
// names, parameter schemas and development wrappers. Go values (factory
// functions, helpers, callable templates) are referenced by name and bound
// by the caller. YAML, JSON and HCL are supported, selected by extension.
package manifestfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the file representation of a manifest.
type Manifest struct {
	Shared              Shared      `yaml:"shared" json:"shared"`
	Components          []Component `yaml:"components" json:"components"`
	AssetDirectoryRoots []string    `yaml:"assetDirectoryRoots" json:"assetDirectoryRoots"`
	Development         Development `yaml:"development" json:"development"`
}

// Shared holds options inherited by every view in scope.
type Shared struct {
	// Components maps child names to "component/view" addresses.
	Components  map[string]string `yaml:"components" json:"components"`
	Factories   []Factory         `yaml:"factories" json:"factories"`
	Helpers     []string          `yaml:"helpers" json:"helpers"`
	ParamSchema map[string]any    `yaml:"paramSchema" json:"paramSchema"`
	Route       *Route            `yaml:"route" json:"route"`
}

// Factory references a bound factory function by name.
type Factory struct {
	Name     string `yaml:"name" json:"name"`
	Priority int    `yaml:"priority" json:"priority"`
}

// Route mounts a view at a custom URL pattern.
type Route struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	View    string `yaml:"view" json:"view"`
}

// Development holds development-only options.
type Development struct {
	ContentWrapper string `yaml:"contentWrapper" json:"contentWrapper"`
}

// Component is a component entry.
type Component struct {
	Path         string      `yaml:"path" json:"path"`
	Root         string      `yaml:"root" json:"root"`
	ClientScript string      `yaml:"clientScript" json:"clientScript"`
	Shared       Shared      `yaml:"shared" json:"shared"`
	Development  Development `yaml:"development" json:"development"`
	Views        []View      `yaml:"views" json:"views"`
}

// View is a view entry. For func and templ kinds Template names a bound
// callable instead of holding template source.
type View struct {
	Name         string            `yaml:"name" json:"name"`
	Template     string            `yaml:"template" json:"template"`
	TemplateFile string            `yaml:"templateFile" json:"templateFile"`
	Kind         string            `yaml:"kind" json:"kind"`
	Components   map[string]string `yaml:"components" json:"components"`
	Factories    []Factory         `yaml:"factories" json:"factories"`
	Helpers      []string          `yaml:"helpers" json:"helpers"`
	ParamSchema  map[string]any    `yaml:"paramSchema" json:"paramSchema"`
	Development  Development       `yaml:"development" json:"development"`
	Assets       []Asset           `yaml:"assets" json:"assets"`
}

// Asset is a script or style reference.
type Asset struct {
	Kind string `yaml:"kind" json:"kind"`
	URL  string `yaml:"url" json:"url"`
}

// Load reads a manifest file, detecting the format by extension.
// Supported extensions: .yaml, .yml, .json, .hcl
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes data, using filename's extension to pick the format.
func Parse(data []byte, filename string) (*Manifest, error) {
	var (
		m   *Manifest
		err error
	)
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		m, err = FromYAML(data)
	case ".json":
		m, err = FromJSON(data)
	case ".hcl":
		m, err = FromHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported manifest file extension: %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// FromYAML parses YAML data.
func FromYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &m, nil
}

// FromJSON parses JSON data.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &m, nil
}

// Validate checks the structural rules a file must satisfy on its own.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		if c.Path == "" {
			return fmt.Errorf("component %d: path is required", i)
		}
		if seen[c.Path] {
			return fmt.Errorf("component %q: declared twice", c.Path)
		}
		seen[c.Path] = true
		if len(c.Views) == 0 {
			return fmt.Errorf("component %q: at least one view is required", c.Path)
		}
		for j, v := range c.Views {
			if v.Name == "" {
				return fmt.Errorf("component %q: view %d: name is required", c.Path, j)
			}
			if v.Template != "" && v.TemplateFile != "" {
				return fmt.Errorf("component %q: view %q: template and templateFile are exclusive", c.Path, v.Name)
			}
			for _, a := range v.Assets {
				if a.Kind != "script" && a.Kind != "style" {
					return fmt.Errorf("component %q: view %q: asset kind %q must be script or style", c.Path, v.Name, a.Kind)
				}
			}
		}
	}
	return nil
}
