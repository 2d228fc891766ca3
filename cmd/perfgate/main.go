package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/perfgate/perfgate/internal/observability"
)

var (
	logLevel     string
	otelEnabled  bool
	otelEndpoint string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "perfgate",
	Short: "perfgate — benchmark measurement and regression gating",
	Long:  "Measure HTTP targets and micro-benchmark operations, persist baseline profiles, and gate regressions against them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&otelEnabled, "otel-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (host:port) for traces; if empty uses stdout exporter")
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// initTracing starts the tracer for measuring commands and returns a
// deferred-safe shutdown.
func initTracing() (func(), error) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:  otelEnabled,
		Service:  "perfgate",
		Endpoint: otelEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("otel shutdown error", "error", err)
		}
	}, nil
}
