package blueprint

import (
	"fmt"
	"slices"

	"github.com/xeipuuv/gojsonschema"
)

// ParamSchema holds one JSON Schema per parameter section. Nil sections are
// not validated.
//
//	&blueprint.ParamSchema{
//	    Query: map[string]any{
//	        "type":     "object",
//	        "required": []any{"page"},
//	        "properties": map[string]any{
//	            "page": map[string]any{"type": "string", "pattern": "^[0-9]+$"},
//	        },
//	    },
//	}
type ParamSchema struct {
	Headers map[string]any `json:"headers,omitempty" yaml:"headers,omitempty"`
	Path    map[string]any `json:"path,omitempty" yaml:"path,omitempty"`
	Query   map[string]any `json:"query,omitempty" yaml:"query,omitempty"`
	Body    map[string]any `json:"body,omitempty" yaml:"body,omitempty"`
}

// Validate checks params against every declared section and returns all
// offending fields. Field names are prefixed with their section, e.g.
// "query.page".
func (s *ParamSchema) Validate(p Params) ([]FieldError, error) {
	if s == nil {
		return nil, nil
	}
	sections := []struct {
		name   string
		schema map[string]any
		value  map[string]any
	}{
		{"headers", s.Headers, p.Headers},
		{"path", s.Path, p.Path},
		{"query", s.Query, p.Query},
		{"body", s.Body, p.Body},
	}

	var fields []FieldError
	for _, sec := range sections {
		if sec.schema == nil {
			continue
		}
		doc := sec.value
		if doc == nil {
			doc = map[string]any{}
		}
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(sec.schema),
			gojsonschema.NewGoLoader(doc),
		)
		if err != nil {
			return nil, fmt.Errorf("validate %s schema: %w", sec.name, err)
		}
		if result.Valid() {
			continue
		}
		for _, desc := range result.Errors() {
			fields = append(fields, FieldError{
				Field:   sec.name + "." + fieldName(desc),
				Message: desc.Description(),
			})
		}
	}
	slices.SortStableFunc(fields, func(a, b FieldError) int {
		switch {
		case a.Field < b.Field:
			return -1
		case a.Field > b.Field:
			return 1
		}
		return 0
	})
	return fields, nil
}

// fieldName names the offending property. Errors raised on the parent
// object (required, additionalProperties) carry the property in details.
func fieldName(desc gojsonschema.ResultError) string {
	if prop, ok := desc.Details()["property"].(string); ok && prop != "" {
		if desc.Field() == "(root)" {
			return prop
		}
		return desc.Field() + "." + prop
	}
	return desc.Field()
}
