package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm/blueprint"
	"github.com/pthm/blueprint/lib/telemetry"
)

const version = "0.1.0"

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand. It is separate from main for testing.
func run(ctx context.Context, outW io.Writer, args []string) error {
	if len(args) < 1 {
		printUsage(outW)
		return &ExitError{Code: 2, Message: "missing command"}
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		return runServe(ctx, outW, rest)
	case "prerender":
		return runPreRender(ctx, outW, rest)
	case "check":
		return runCheck(ctx, outW, rest)
	case "version":
		fmt.Fprintf(outW, "blueprint version %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(outW)
		return nil
	default:
		printUsage(outW)
		return &ExitError{Code: 2, Message: "unknown command: " + cmd}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `blueprint - component composition server

Usage:
  blueprint <command> [options]

Commands:
  serve       Serve a manifest over HTTP
  prerender   Render one view in isolation (children stubbed, no factories)
  check       Pre-render every view and report failures
  version     Print version
  help        Show this help

Common options:
  -manifest   Manifest file (.yaml, .yml, .json, .hcl). Default: blueprint.yaml
  -env        production, development or local. Default: $BLUEPRINT_ENV

Examples:
  blueprint serve -addr :8080 -env development
  blueprint prerender -manifest site.hcl -data '{"msg":"hi"}' greeting/main
  blueprint check -manifest site.yaml`)
}

type common struct {
	manifest string
	env      string
	logLevel string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.manifest, "manifest", "blueprint.yaml", "Manifest file.")
	fs.StringVar(&c.env, "env", os.Getenv("BLUEPRINT_ENV"), "Environment.")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
}

func (c *common) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, &ExitError{Code: 2, Message: "invalid log-level: " + c.logLevel}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// load reads the manifest and returns resolver options pointing template
// files at the manifest's directory.
func (c *common) load() (blueprint.Manifest, []blueprint.Option, error) {
	m, err := blueprint.LoadManifest(c.manifest, cliBindings())
	if err != nil {
		return blueprint.Manifest{}, nil, err
	}
	dir := filepath.Dir(c.manifest)
	opts := []blueprint.Option{
		blueprint.WithEnvironment(blueprint.ParseEnvironment(c.env)),
		blueprint.WithFS(os.DirFS(dir)),
	}
	return m, opts, nil
}

// cliBindings are the factories manifests can name when served by the CLI.
func cliBindings() blueprint.Bindings {
	return blueprint.Bindings{
		Factories: map[string]blueprint.FactoryFunc{
			"query": func(ctx context.Context, cc *blueprint.ComponentContext) error {
				cc.MergePublicData(cc.Params.Query)
				return nil
			},
			"path": func(ctx context.Context, cc *blueprint.ComponentContext) error {
				cc.MergePublicData(cc.Params.Path)
				return nil
			},
			"device": func(ctx context.Context, cc *blueprint.ComponentContext) error {
				cc.SetPublicData("deviceType", string(cc.DeviceType))
				return nil
			},
		},
		Helpers: map[string]any{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": func(s string) string {
				if s == "" {
					return s
				}
				return strings.ToUpper(s[:1]) + s[1:]
			},
		},
	}
}

func runServe(ctx context.Context, outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(outW)
	var c common
	c.register(fs)
	addr := fs.String("addr", ":8080", "Listen address.")
	metricsPath := fs.String("metrics", "/metrics", "Prometheus metrics path. Empty disables metrics.")
	timeout := fs.Duration("timeout", blueprint.DefaultRequestTimeout, "Per-request timeout.")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}

	logger, err := c.logger(os.Stderr)
	if err != nil {
		return err
	}
	m, opts, err := c.load()
	if err != nil {
		return err
	}
	opts = append(opts,
		blueprint.WithLogger(logger),
		blueprint.WithRequestTimeout(*timeout),
		blueprint.WithTracer(telemetry.NewTracer()))

	mux := http.NewServeMux()
	if *metricsPath != "" {
		promReg := prometheus.NewRegistry()
		metrics, err := telemetry.NewMetrics(promReg)
		if err != nil {
			return err
		}
		opts = append(opts, blueprint.WithMetrics(metrics))
		mux.Handle(*metricsPath, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	reg := blueprint.NewRegistry(m, opts...)
	mux.Handle("/", reg.Handler())

	if err := reg.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", slog.String("addr", *addr), slog.String("env", string(reg.Environment())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = reg.Stop(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return errors.Join(srv.Shutdown(shutdownCtx), reg.Stop(shutdownCtx))
}

func runPreRender(ctx context.Context, outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("prerender", flag.ContinueOnError)
	fs.SetOutput(outW)
	var c common
	c.register(fs)
	data := fs.String("data", "", "Public data as a JSON object.")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	if fs.NArg() != 1 {
		return &ExitError{Code: 2, Message: "prerender needs exactly one component/view address"}
	}
	addr, err := blueprint.ParseAddress(fs.Arg(0))
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	var pd map[string]any
	if *data != "" {
		if err := json.Unmarshal([]byte(*data), &pd); err != nil {
			return &ExitError{Code: 2, Message: "invalid -data: " + err.Error()}
		}
	}

	m, opts, err := c.load()
	if err != nil {
		return err
	}
	res, err := blueprint.NewResolver(m, opts...)
	if err != nil {
		return err
	}
	out, err := blueprint.NewPreRenderer(res).PreRender(ctx, addr.Component, addr.View, blueprint.PreRenderOptions{Data: pd})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(outW, string(out))
	return err
}

func runCheck(ctx context.Context, outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(outW)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}

	m, opts, err := c.load()
	if err != nil {
		return err
	}
	res, err := blueprint.NewResolver(m, opts...)
	if err != nil {
		return err
	}
	failures := blueprint.NewPreRenderer(res).CheckAll(ctx)

	views := 0
	for _, comp := range m.Components {
		views += len(comp.Views)
	}
	if len(failures) == 0 {
		fmt.Fprintf(outW, "ok: %d views in %d components\n", views, len(m.Components))
		return nil
	}

	addrs := make([]string, 0, len(failures))
	for a := range failures {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	for _, a := range addrs {
		fmt.Fprintf(outW, "FAIL %s: %v\n", a, failures[a])
	}
	return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d views failed", len(failures), views)}
}

func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return &ExitError{Code: 2, Message: err.Error()}
}
