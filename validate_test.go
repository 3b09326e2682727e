package blueprint

import (
	"testing"
)

func TestParamSchemaValidate(t *testing.T) {
	schema := &ParamSchema{
		Headers: map[string]any{
			"type":     "object",
			"required": []any{"x-tenant"},
		},
		Path: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "pattern": "^[0-9]+$"},
			},
		},
		Query: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"page": map[string]any{"type": "string"},
			},
		},
	}

	tests := []struct {
		name   string
		params Params
		want   []string
	}{
		{
			name: "valid",
			params: Params{
				Headers: map[string]any{"x-tenant": "acme"},
				Path:    map[string]any{"id": "42"},
				Query:   map[string]any{"page": "1"},
			},
		},
		{
			name:   "missing sections validate as empty objects",
			params: Params{},
			want:   []string{"headers.x-tenant"},
		},
		{
			name: "every section reported",
			params: Params{
				Path:  map[string]any{"id": "abc"},
				Query: map[string]any{"sort": "name"},
			},
			want: []string{"headers.x-tenant", "path.id", "query.sort"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := schema.Validate(tt.params)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			var got []string
			for _, f := range fields {
				got = append(got, f.Field)
				if f.Message == "" {
					t.Errorf("field %s has no message", f.Field)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Validate() fields = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Validate() fields = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestParamSchemaValidateNil(t *testing.T) {
	var schema *ParamSchema
	fields, err := schema.Validate(Params{Query: map[string]any{"anything": 1}})
	if err != nil || len(fields) != 0 {
		t.Errorf("nil schema Validate() = %v, %v, want no fields", fields, err)
	}
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{
		Component: "list",
		View:      "main",
		Fields:    []FieldError{{Field: "query.page", Message: "Does not match pattern"}},
	})

	if !IsValidation(err) {
		t.Error("IsValidation() = false, want true")
	}
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatal("AsValidation() ok = false")
	}
	if !verr.HasField("query.page") || verr.HasField("query.size") {
		t.Errorf("HasField() mismatch for %+v", verr.Fields)
	}
}
