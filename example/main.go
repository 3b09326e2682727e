package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm/blueprint"
	"github.com/pthm/blueprint/example/components"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	env := blueprint.ParseEnvironment(os.Getenv("BLUEPRINT_ENV"))

	// In production, load the key from a secret store.
	key := []byte("example-key-must-be-32-bytes!!!!")
	reg := blueprint.NewRegistry(components.Manifest(NewStore()),
		blueprint.WithEnvironment(env),
		blueprint.WithLogger(logger),
		blueprint.WithKey(key),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reg.Start(ctx); err != nil {
		logger.Error("start services", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: *addr, Handler: reg.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = reg.Stop(shutdownCtx)
	}()

	logger.Info("serving todos", "addr", "http://localhost"+*addr, "env", env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}
