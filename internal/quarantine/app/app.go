// Package app runs the quarantine pipeline: runtime selection, image
// provisioning, container replacement, the interactive session relay, and
// teardown. Every stage is sequential; only the relay's internals are
// concurrent.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/quarantinehq/quarantine/internal/quarantine/container"
	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
	"github.com/quarantinehq/quarantine/internal/quarantine/image"
	"github.com/quarantinehq/quarantine/internal/quarantine/runtime"
	"github.com/quarantinehq/quarantine/internal/quarantine/session"
)

// Config holds the already-parsed invocation options.
type Config struct {
	// Image is the image reference to quarantine, optionally tagged.
	Image string
	// Runtime is the requested low-level runtime name; empty means the
	// engine default.
	Runtime string
	// Persist retains the container after the session ends instead of
	// tearing it down.
	Persist bool
	// InputIsTerminal reports whether Streams.In is an interactive terminal.
	InputIsTerminal bool
	// Streams are the local endpoints the session is bridged to.
	Streams session.Streams
}

// Run executes one quarantine invocation against the given engine. It returns
// the error that should decide the process exit status.
//
// Once the container has been started, teardown is attempted no matter how
// the session ends — success, relay error, attach failure, or cancellation —
// unless persistence was requested. A teardown failure is joined into the
// result even when the session itself succeeded.
func Run(ctx context.Context, api engine.API, cfg Config) error {
	info, err := api.Info(ctx)
	if err != nil {
		return fmt.Errorf("engine info: %w", err)
	}
	available := make([]string, 0, len(info.Runtimes))
	for name := range info.Runtimes {
		available = append(available, name)
	}
	selected := runtime.Resolve(cfg.Runtime, info.DefaultRuntime, available)

	if err := image.NewProvisioner(api).Ensure(ctx, cfg.Image); err != nil {
		return err
	}

	identity := container.Identity(cfg.Image)
	mgr := container.NewManager(api)
	if err := mgr.EnsureClean(ctx, identity); err != nil {
		return err
	}

	hostDir, err := workingDir()
	if err != nil {
		return err
	}

	handle, err := mgr.CreateAndStart(ctx, container.Spec{
		Identity: identity,
		Image:    cfg.Image,
		Runtime:  selected,
		HostDir:  hostDir,
	})
	if err != nil {
		return err
	}

	runErr := runSession(ctx, api, cfg, identity)

	if cfg.Persist {
		slog.Info("persisting container", "id", handle.ID, "name", identity)
		return runErr
	}

	// Teardown must proceed even when the session ended because ctx was
	// cancelled by Ctrl-C.
	cleanupErr := mgr.Cleanup(context.WithoutCancel(ctx), identity)
	return errors.Join(runErr, cleanupErr)
}

func runSession(ctx context.Context, api engine.API, cfg Config, identity string) error {
	slog.Info("creating an exec instance to run a shell in the container")
	sess, err := session.Attach(ctx, api, identity)
	if err != nil {
		return err
	}
	defer sess.Close()

	if !cfg.InputIsTerminal {
		slog.Warn("local input is not a terminal, relaying piped input")
	}

	return session.Run(ctx, sess, cfg.Streams)
}

// workingDir resolves the host directory bound into the container, rejecting
// paths that are not portable text.
func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("current working directory: %w", err)
	}
	if !utf8.ValidString(dir) {
		return "", fmt.Errorf("current working directory path %q is not valid unicode", dir)
	}
	return dir, nil
}
