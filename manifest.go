package blueprint

import "fmt"

// Manifest is everything the resolver consumes at startup.
type Manifest struct {
	Components []Component

	// Shared options are the global scope inherited by every view.
	Shared SharedOptions

	Controllers         []Controller
	Services            []Service
	AssetDirectoryRoots []string
	Development         DevelopmentOptions
}

// index maps component paths to components. Duplicate paths and views
// without a name are configuration errors.
func (m *Manifest) index() (map[string]*Component, error) {
	out := make(map[string]*Component, len(m.Components))
	for i := range m.Components {
		c := &m.Components[i]
		if c.Path == "" {
			return nil, fmt.Errorf("blueprint: component %d has no path", i)
		}
		if _, exists := out[c.Path]; exists {
			return nil, fmt.Errorf("blueprint: duplicate component path %q", c.Path)
		}
		seen := make(map[string]bool, len(c.Views))
		for _, v := range c.Views {
			if v.Name == "" {
				return nil, fmt.Errorf("blueprint: component %q has a view without a name", c.Path)
			}
			if seen[v.Name] {
				return nil, fmt.Errorf("blueprint: component %q declares view %q twice", c.Path, v.Name)
			}
			seen[v.Name] = true
		}
		out[c.Path] = c
	}
	return out, nil
}
