// Package blueprint composes server-rendered pages out of independently
// addressable components, each free to use its own template technology.
//
// # Core Concepts
//
// A Manifest lists Components. Each component has one or more Views, and
// each view has a template: html/template or text/template source, an
// EJS-style template, a templ component or a plain Go function. A view is
// addressed as "component/view".
//
//	manifest := blueprint.Manifest{
//	    Components: []blueprint.Component{{
//	        Path: "greeting",
//	        Views: []blueprint.View{{
//	            Name:     "main",
//	            Kind:     blueprint.KindEJS,
//	            Template: `<p><%= context.data.msg %></p>`,
//	            Factories: []blueprint.Factory{{
//	                Name: "msg",
//	                Func: func(ctx context.Context, cc *blueprint.ComponentContext) error {
//	                    cc.SetPublicData("msg", "hi")
//	                    return nil
//	                },
//	            }},
//	        }},
//	    }},
//	}
//
// # Resolution
//
// The Resolver renders one view and everything beneath it:
//
//  1. look up the component and view
//  2. validate request params against the view's JSON Schema
//  3. merge global, component and view options
//  4. resolve declared children concurrently, one nest level deeper
//  5. run factories: view scope, then component, then global
//  6. wrap the template with development wrappers (outside production)
//  7. render through the view's Renderer
//  8. package the markup with its public data and assets
//
// A failing child, factory or renderer never aborts its parent. Children
// that cannot be resolved and renders that fail become inline error
// fragments; factory failures leave an {error, message} marker in public
// data. Only lookup and validation failures of the requested view itself,
// and context cancellation, are returned as errors.
//
// # Public and Private Data
//
// Factories share data with the template through the ComponentContext.
// SetPublicData values are serialized into the page for client-side
// hydration; SetPrivateData values stay on the server.
//
// # HTTP
//
// NewRegistry mounts a manifest:
//
//	reg := blueprint.NewRegistry(manifest, blueprint.WithEnvironment(blueprint.EnvDevelopment))
//	http.Handle("/", reg.Handler())
//
// Views are served at /_c/{component}/{view}. Top-level requests produce a
// full document; HTMX requests and ?fragment=1 produce a bare fragment.
// Components can also be mounted at custom patterns through Route.
//
// # Client Runtime
//
// Every fragment carries a data-blueprint-pointer attribute and a JSON
// payload. The lib/client package models the browser runtime that binds
// code-behind to those instances, and lib/bus the event bus they talk
// through.
package blueprint
