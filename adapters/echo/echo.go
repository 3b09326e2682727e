// Package blueprintecho provides Echo framework integration for blueprint
// registries.
//
// Mount a manifest onto an Echo instance or group:
//
//	e := echo.New()
//	reg := blueprintecho.Mount(e, manifest)
//
// Or mount on a group with middleware:
//
//	g := e.Group("", authMiddleware)
//	reg := blueprintecho.MountGroup(g, manifest, blueprint.WithEnvironment(blueprint.EnvDevelopment))
package blueprintecho

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/blueprint"
)

// router is the route registration surface shared by *echo.Echo and
// *echo.Group.
type router interface {
	Any(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) []*echo.Route
	Add(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Mount creates a registry and routes every one of its patterns on an Echo
// instance.
//
//	e := echo.New()
//	reg := blueprintecho.Mount(e, manifest)
//
//	// With options:
//	reg := blueprintecho.Mount(e, manifest, blueprint.WithKey(key))
func Mount(e *echo.Echo, m blueprint.Manifest, opts ...blueprint.Option) *blueprint.Registry {
	reg := blueprint.NewRegistry(m, opts...)
	mount(e, reg)
	return reg
}

// MountGroup creates a registry and routes it on an Echo group, so
// component requests share the group's middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, m blueprint.Manifest, opts ...blueprint.Option) *blueprint.Registry {
	reg := blueprint.NewRegistry(m, opts...)
	mount(g, reg)
	return reg
}

func mount(r router, reg *blueprint.Registry) {
	h := echo.WrapHandler(reg.Handler())
	for _, pattern := range reg.Routes() {
		method, path := EchoPath(pattern)
		if method == "" {
			r.Any(path, h)
		} else {
			r.Add(method, path, h)
		}
	}
}

// EchoPath converts a net/http.ServeMux pattern into an Echo method and
// path. "{name}" becomes ":name", "{name...}" and trailing slashes become
// "*", and "{$}" is dropped.
func EchoPath(pattern string) (method, path string) {
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		method, pattern = pattern[:i], strings.TrimSpace(pattern[i+1:])
	}
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		switch {
		case seg == "{$}":
			segs[i] = ""
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "...}"):
			segs[i] = "*"
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			segs[i] = ":" + seg[1:len(seg)-1]
		}
	}
	path = strings.Join(segs, "/")
	if strings.HasSuffix(path, "/") {
		path += "*"
	}
	return method, path
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return blueprintecho.Render(c, blueprint.Child("footer"))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
