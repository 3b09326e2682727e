package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"

	"github.com/pthm/blueprint/lib/client"
)

// Fragment is the packaged output of one view invocation.
//
// HTML is the renderer output as-is. Markup wraps it in a node carrying the
// component data pointer and appends the public-data payload; Document
// additionally produces a full HTML page for blueprints.
type Fragment struct {
	ID          string
	Component   string
	View        string
	NestLevel   int
	Blueprint   bool
	ParentID    string
	BlueprintID string

	HTML []byte

	// Data is a snapshot of the context's public data. Private data is
	// never copied here.
	Data map[string]any

	// Assets are the scripts and styles of this fragment and all of its
	// descendants, in first-seen order.
	Assets []Asset

	// Errors are the absorbed factory and render failures of this
	// fragment (not its children).
	Errors []error
}

// Address returns the fragment's component/view address.
func (f *Fragment) Address() Address {
	return Address{Component: f.Component, View: f.View}
}

// Payload returns the JSON payload the client hydrates from.
func (f *Fragment) Payload() ([]byte, error) {
	data := f.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(client.Payload{
		ID:          f.ID,
		Component:   f.Component,
		View:        f.View,
		ParentID:    f.ParentID,
		BlueprintID: f.BlueprintID,
		NestLevel:   f.NestLevel,
		Data:        data,
	})
}

// Markup returns the fragment wrapped in its pointer node followed by the
// payload script. This is what parents receive for child slots.
func (f *Fragment) Markup() ([]byte, error) {
	payload, err := f.Payload()
	if err != nil {
		return nil, fmt.Errorf("encode payload of %s: %w", f.Address(), err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<div %s="%s" data-component="%s">`,
		client.PointerAttribute, html.EscapeString(f.ID), html.EscapeString(f.Address().String()))
	buf.Write(f.HTML)
	buf.WriteString(`</div>`)
	// encoding/json escapes <, > and &, so the payload cannot close the
	// script element early.
	fmt.Fprintf(&buf, `<script type="application/json" %s="%s">`,
		client.PayloadAttribute, html.EscapeString(f.ID))
	buf.Write(payload)
	buf.WriteString(`</script>`)
	return buf.Bytes(), nil
}

// Document returns a complete HTML document embedding the fragment markup
// and the collected assets.
func (f *Fragment) Document(title string) ([]byte, error) {
	markup, err := f.Markup()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	for _, a := range f.Assets {
		if a.Kind == AssetStyle {
			fmt.Fprintf(&buf, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(a.URL))
		}
	}
	buf.WriteString("</head>\n<body>\n")
	buf.Write(markup)
	buf.WriteString("\n")
	for _, a := range f.Assets {
		if a.Kind == AssetScript {
			fmt.Fprintf(&buf, "<script src=\"%s\" defer></script>\n", html.EscapeString(a.URL))
		}
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
