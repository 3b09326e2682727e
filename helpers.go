package blueprint

import (
	"context"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    blueprint.Render(w, r, blueprint.ErrorFragment("page/home", "internal", "unavailable"))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsFragmentRequest reports whether the client asked for a bare fragment
// instead of a full document: HTMX requests and ?fragment=1.
func IsFragmentRequest(r *http.Request) bool {
	if IsHTMX(r) {
		return true
	}
	switch r.URL.Query().Get("fragment") {
	case "1", "true":
		return true
	}
	return false
}

// WantsJSON reports whether the client prefers a JSON rendition.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// DetectDevice classifies the client. An explicit X-Device-Type header wins
// over User-Agent heuristics.
func DetectDevice(r *http.Request) DeviceType {
	if v := r.Header.Get("X-Device-Type"); v != "" {
		return ParseDeviceType(v)
	}
	ua := strings.ToLower(r.UserAgent())
	switch {
	case ua == "":
		return DeviceDesktop
	case strings.Contains(ua, "bot"), strings.Contains(ua, "crawler"), strings.Contains(ua, "spider"):
		return DeviceBot
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		return DeviceMobile
	}
	return DeviceDesktop
}

// RequestLocale returns the first language tag of Accept-Language.
func RequestLocale(r *http.Request) string {
	al := r.Header.Get("Accept-Language")
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.TrimSpace(tag)
}

// ServerURL returns scheme://host for the request.
func ServerURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

type authKey struct{}

// WithAuth attaches authentication state for the resolver. Authentication
// middleware calls this; the value reaches every ComponentContext as Auth.
func WithAuth(ctx context.Context, auth any) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

// AuthFrom returns the authentication state attached by WithAuth.
func AuthFrom(ctx context.Context) any {
	return ctx.Value(authKey{})
}
