package blueprint

import (
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pthm/blueprint/lib/encoding"
	"github.com/pthm/blueprint/lib/telemetry"
)

// Environment controls development-only behaviour.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
	EnvLocal       Environment = "local"
)

// ParseEnvironment maps a free-form value onto an Environment. Anything
// unrecognised is production.
func ParseEnvironment(s string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvDevelopment, "dev":
		return EnvDevelopment
	case EnvLocal:
		return EnvLocal
	default:
		return EnvProduction
	}
}

// IsProduction reports whether development instrumentation is disabled.
func (e Environment) IsProduction() bool {
	return e != EnvDevelopment && e != EnvLocal
}

// Defaults for resolver and registry settings.
const (
	DefaultMaxNestLevel   = 16
	DefaultConcurrency    = 8
	DefaultPrefix         = "/_c/"
	DefaultAssetPrefix    = "/_assets/"
	DefaultRequestTimeout = 30 * time.Second
)

type settings struct {
	env            Environment
	maxNestLevel   int
	concurrency    int
	logger         *slog.Logger
	metrics        *telemetry.Metrics
	tracer         *telemetry.Tracer
	fsys           fs.FS
	renderers      map[Kind]Renderer
	newID          func() string
	key            []byte
	paramMode      encoding.Mode
	prefix         string
	requestTimeout time.Duration
}

func defaultSettings() *settings {
	return &settings{
		env:            EnvProduction,
		maxNestLevel:   DefaultMaxNestLevel,
		concurrency:    DefaultConcurrency,
		logger:         slog.Default(),
		renderers:      DefaultRenderers(),
		newID:          uuid.NewString,
		prefix:         DefaultPrefix,
		requestTimeout: DefaultRequestTimeout,
	}
}

// Option configures a Resolver or Registry.
type Option func(*settings)

// WithEnvironment sets the environment. The default is EnvProduction.
func WithEnvironment(env Environment) Option {
	return func(s *settings) { s.env = env }
}

// WithMaxNestLevel bounds component nesting. Children deeper than n are
// replaced by a depth-exceeded error fragment.
func WithMaxNestLevel(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxNestLevel = n
		}
	}
}

// WithConcurrency limits how many sibling children resolve at once.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracer enables OpenTelemetry spans.
func WithTracer(t *telemetry.Tracer) Option {
	return func(s *settings) { s.tracer = t }
}

// WithFS sets the file system template files are read from.
func WithFS(fsys fs.FS) Option {
	return func(s *settings) { s.fsys = fsys }
}

// WithRenderer installs or replaces the renderer for a kind.
func WithRenderer(kind Kind, r Renderer) Option {
	return func(s *settings) { s.renderers[kind] = r }
}

// WithIDFunc replaces the context id generator (uuid by default).
func WithIDFunc(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithKey sets the key used to sign fragment URL params. Without it the
// registry generates a random key, which only suits a single process.
func WithKey(key []byte) Option {
	return func(s *settings) { s.key = key }
}

// WithEncryptedParams encrypts fragment URL params instead of only signing
// them, so address params stay opaque to the browser.
func WithEncryptedParams() Option {
	return func(s *settings) { s.paramMode = encoding.Encrypted }
}

// WithPrefix sets the URL prefix component routes are mounted under.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		s.prefix = prefix
	}
}

// WithRequestTimeout bounds each HTTP composition request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) { s.requestTimeout = d }
}

// DefaultRenderers returns a fresh renderer for every Kind.
func DefaultRenderers() map[Kind]Renderer {
	return map[Kind]Renderer{
		KindHTML:  &HTMLRenderer{},
		KindText:  &TextRenderer{},
		KindEJS:   &EJSRenderer{},
		KindTempl: &TemplRenderer{},
		KindFunc:  &FuncRenderer{},
	}
}
