package client

// DOM attribute names shared by the server markup and the client runtime.
const (
	// PointerAttribute carries the component instance id on the fragment
	// root node and on the component's client script element.
	PointerAttribute = "data-blueprint-pointer"

	// PayloadAttribute marks the JSON script element holding the instance's
	// public data.
	PayloadAttribute = "data-blueprint-payload"
)

// Payload is the JSON envelope embedded next to every fragment.
type Payload struct {
	ID          string         `json:"id"`
	Component   string         `json:"component"`
	View        string         `json:"view"`
	ParentID    string         `json:"parentId,omitempty"`
	BlueprintID string         `json:"blueprintId,omitempty"`
	NestLevel   int            `json:"nestLevel"`
	Data        map[string]any `json:"data"`
}
