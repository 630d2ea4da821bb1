package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/quarantinehq/quarantine/common/environment"
	"github.com/quarantinehq/quarantine/common/version"
	"github.com/quarantinehq/quarantine/internal/quarantine/app"
	"github.com/quarantinehq/quarantine/internal/quarantine/config"
	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
	"github.com/quarantinehq/quarantine/internal/quarantine/observability"
	"github.com/quarantinehq/quarantine/internal/quarantine/session"
)

var cli struct {
	ImageName string           `short:"i" required:"" help:"Image reference to run, optionally tagged (e.g. alpine:latest)."`
	Runtime   string           `short:"r" help:"Container runtime to use; falls back to the engine default when unavailable."`
	Persist   bool             `short:"p" help:"Keep the container after the session ends instead of removing it."`
	Config    string           `short:"c" type:"path" help:"Path to a YAML config file (default: user config dir)."`
	LogLevel  string           `help:"Log level: debug, info, warn, error." enum:",debug,info,warn,error" default:""`
	LogFormat string           `help:"Log format: text or json." enum:",text,json" default:""`
	Version   kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("quarantine"),
		kong.Description("Run a disposable, isolated shell for an image with the current directory mounted read-write."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Info()},
	)

	fileCfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	observability.Setup(
		firstNonEmpty(cli.LogLevel, environment.StringOr("QUARANTINE_LOG_LEVEL", ""), fileCfg.LogLevel, "info"),
		firstNonEmpty(cli.LogFormat, environment.StringOr("QUARANTINE_LOG_FORMAT", ""), fileCfg.LogFormat, "text"),
	)
	slog.SetDefault(observability.WithRun())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := engine.Connect()
	if err != nil {
		slog.Error("connecting to container engine", "error", err)
		os.Exit(1)
	}

	cfg := app.Config{
		Image:           cli.ImageName,
		Runtime:         resolveRuntime(cli.Runtime, fileCfg.Runtime),
		Persist:         resolvePersist(cli.Persist),
		InputIsTerminal: term.IsTerminal(int(os.Stdin.Fd())),
		Streams: session.Streams{
			In:  os.Stdin,
			Out: os.Stdout,
			Err: os.Stderr,
		},
	}

	if err := app.Run(ctx, api, cfg); err != nil {
		slog.Error("quarantine session failed", "error", err)
		os.Exit(1)
	}
	slog.Info("done")
}

// resolveRuntime applies the flag > env > config file precedence to the
// requested runtime name. Empty means the engine default.
func resolveRuntime(flagValue, fileValue string) string {
	return firstNonEmpty(flagValue, environment.StringOr("QUARANTINE_RUNTIME", ""), fileValue)
}

// resolvePersist honors the persist flag first; the environment can only
// switch persistence on, never override an explicit --persist.
func resolvePersist(flagValue bool) bool {
	return flagValue || environment.BoolOr("QUARANTINE_PERSIST", false)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
