// Package components declares the todo example's blueprint manifest.
package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/pthm/blueprint"
)

const pageTemplate = `<main>
<h1>Todos</h1>
{{component "form"}}
{{component "list"}}
{{component "stats"}}
</main>`

const htmxURL = "https://unpkg.com/htmx.org@2.0.4"

const listTemplate = `<ul id="todo-list">
{{- range .Data.todos}}
<li data-todo="{{.ID}}"{{if .Done}} class="done"{{end}}>
<button hx-post="/_c/todos/list" hx-vals='{"toggle":"{{.ID}}"}' hx-target="#todo-list" hx-swap="outerHTML">{{.Title}}</button>
</li>
{{- else}}
<li class="empty">Nothing to do</li>
{{- end}}
</ul>`

const statsTemplate = `<p class="stats"><%= context.data.pending %> of <%= context.data.total %> left</p>`

// Manifest builds the example's manifest around store.
func Manifest(store TodoStore) blueprint.Manifest {
	return blueprint.Manifest{
		Components: []blueprint.Component{
			{
				Path: "app",
				Shared: blueprint.SharedOptions{
					Route: &blueprint.Route{Pattern: "GET /{$}", View: "page"},
				},
				Views: []blueprint.View{{
					Name:     "page",
					Template: pageTemplate,
					Assets:   []blueprint.Asset{{Kind: blueprint.AssetScript, URL: htmxURL}},
					Components: map[string]blueprint.Address{
						"form":  {Component: "todos", View: "add"},
						"list":  {Component: "todos", View: "list"},
						"stats": {Component: "todos", View: "stats"},
					},
				}},
			},
			{
				Path: "todos",
				Development: blueprint.DevelopmentOptions{
					ContentWrapper: `<div class="dev-outline">` + blueprint.ContentPlaceholder + `</div>`,
				},
				Views: []blueprint.View{
					{
						Name:     "list",
						Template: listTemplate,
						Factories: []blueprint.Factory{
							{Name: "mutate", Priority: -1, Func: mutate(store)},
							{Name: "todos", Func: listTodos(store)},
						},
						ParamSchema: &blueprint.ParamSchema{
							Query: map[string]any{
								"type": "object",
								"properties": map[string]any{
									"status": map[string]any{"type": "string", "enum": []any{"pending", "completed"}},
								},
							},
							Body: map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title": map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
								},
							},
						},
					},
					{
						Name:     "stats",
						Template: statsTemplate,
						Kind:     blueprint.KindEJS,
						Factories: []blueprint.Factory{{Name: "stats", Func: func(ctx context.Context, cc *blueprint.ComponentContext) error {
							s := store.Stats()
							cc.MergePublicData(map[string]any{
								"total":     s.Total,
								"completed": s.Completed,
								"pending":   s.Pending,
							})
							return nil
						}}},
					},
					{
						Name:     "add",
						Template: blueprint.TemplComponentFunc(addForm),
					},
				},
			},
		},
	}
}

// mutate applies a posted title or toggle before the list is read.
func mutate(store TodoStore) blueprint.FactoryFunc {
	return func(ctx context.Context, cc *blueprint.ComponentContext) error {
		if title, ok := cc.Params.Body["title"].(string); ok && strings.TrimSpace(title) != "" {
			cc.SetPrivateData("created", store.Add(strings.TrimSpace(title)))
		}
		if id, ok := cc.Params.Body["toggle"].(string); ok && id != "" {
			if !store.Toggle(id) {
				return fmt.Errorf("todo %q not found", id)
			}
		}
		return nil
	}
}

func listTodos(store TodoStore) blueprint.FactoryFunc {
	return func(ctx context.Context, cc *blueprint.ComponentContext) error {
		var filter *Status
		if s, ok := cc.Params.Query["status"].(string); ok && s != "" {
			status := Status(s)
			filter = &status
		}
		cc.SetPublicData("todos", store.List(filter))
		return nil
	}
}

func addForm(cc *blueprint.ComponentContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<form id="%s" hx-post="/_c/todos/list" hx-target="#todo-list" hx-swap="outerHTML">`+
				`<input name="title" placeholder="What needs doing?" required>`+
				`<button type="submit">Add</button></form>`,
			templ.EscapeString(cc.ID))
		return err
	})
}
