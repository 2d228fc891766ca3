package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfgate/perfgate/internal/targetsrv"
)

var (
	targetBind      string
	targetSlowDelay time.Duration
	targetFlakyRate float64
	targetSeed      int64
	targetH2C       bool
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Run the local benchmark target server",
	Long: `Serve HTTP endpoints with known latency and failure characteristics
(/ok, /slow, /flaky, /echo, /healthz) for self-contained load runs.`,
	SilenceUsage: true,
	RunE:         runTarget,
}

func init() {
	f := targetCmd.Flags()
	f.StringVar(&targetBind, "bind", ":8091", "HTTP bind address")
	f.DurationVar(&targetSlowDelay, "slow-delay", 150*time.Millisecond, "Fixed latency of /slow")
	f.Float64Var(&targetFlakyRate, "flaky-rate", 0.1, "Failure probability of /flaky in [0,1]")
	f.Int64Var(&targetSeed, "seed", 1, "Seed for the /flaky failure sequence")
	f.BoolVar(&targetH2C, "h2c", false, "Serve HTTP/2 cleartext (h2c)")

	rootCmd.AddCommand(targetCmd)
}

func runTarget(cmd *cobra.Command, args []string) error {
	srv := targetsrv.New(targetsrv.Config{
		BindAddr:         targetBind,
		SlowDelay:        targetSlowDelay,
		FlakyFailureRate: targetFlakyRate,
		Seed:             targetSeed,
		EnableH2C:        targetH2C,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("target server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
