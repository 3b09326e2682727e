package blueprint

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/blueprint/lib/client"
)

func testFragment() *Fragment {
	return &Fragment{
		ID:          "f1",
		Component:   "card",
		View:        "main",
		NestLevel:   1,
		ParentID:    "p1",
		BlueprintID: "p1",
		HTML:        []byte(`<p>card</p>`),
		Data:        map[string]any{"title": "</script><script>alert(1)</script>"},
		Assets: []Asset{
			{Kind: AssetScript, URL: "/card.js"},
			{Kind: AssetStyle, URL: "/card.css"},
		},
	}
}

func TestFragmentPayload(t *testing.T) {
	f := testFragment()
	raw, err := f.Payload()
	require.NoError(t, err)

	var p client.Payload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, client.Payload{
		ID:          "f1",
		Component:   "card",
		View:        "main",
		ParentID:    "p1",
		BlueprintID: "p1",
		NestLevel:   1,
		Data:        map[string]any{"title": "</script><script>alert(1)</script>"},
	}, p)

	empty, err := (&Fragment{ID: "x"}).Payload()
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"data":{}`)
}

func TestFragmentMarkup(t *testing.T) {
	markup, err := testFragment().Markup()
	require.NoError(t, err)
	out := string(markup)

	assert.True(t, strings.HasPrefix(out, `<div data-blueprint-pointer="f1" data-component="card/main"><p>card</p></div>`), out)
	assert.Contains(t, out, `<script type="application/json" data-blueprint-payload="f1">`)
	assert.Equal(t, 1, strings.Count(out, "</script>"), "payload cannot terminate the script element")
}

func TestFragmentDocument(t *testing.T) {
	doc, err := testFragment().Document("Cards & more")
	require.NoError(t, err)
	out := string(doc)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Cards &amp; more</title>")

	head := out[:strings.Index(out, "</head>")]
	assert.Contains(t, head, `<link rel="stylesheet" href="/card.css">`)
	assert.NotContains(t, head, "/card.js")

	body := out[strings.Index(out, "<body>"):]
	assert.Less(t, strings.Index(body, "data-blueprint-pointer"), strings.Index(body, `<script src="/card.js" defer></script>`))
}
