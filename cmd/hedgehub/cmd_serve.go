package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/hedgehub/internal/analysis"
	httpapi "github.com/sawpanic/hedgehub/internal/interfaces/http"
	"github.com/sawpanic/hedgehub/internal/planner"
	"github.com/sawpanic/hedgehub/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (/analyze, /plan, /momentum, /health, /metrics)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	cmd.Flags().String("data-dir", "", "Directory of <TICKER>.csv files (overrides config)")
	cmd.Flags().String("base-url", "", "HTTP history endpoint (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	presets, err := cfg.Presets()
	if err != nil {
		return err
	}
	provider, err := buildProvider(cfg.Provider, log.Logger)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetricsRegistry()
	engine := analysis.NewEngine(
		analysis.WithLogger(log.Logger),
		analysis.WithRecorder(metrics),
		analysis.WithPerfConfig(cfg.Performance),
	)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Addr:             cfg.Server.Addr,
		ReadTimeout:      cfg.Server.ReadTimeout(),
		WriteTimeout:     cfg.Server.WriteTimeout(),
		IdleTimeout:      120 * time.Second,
		RequestTimeout:   cfg.Server.RequestTimeout(),
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		VolatilityTicker: cfg.Provider.VolatilityTicker,
		Version:          version,
	}, httpapi.Deps{
		Engine:   engine,
		Planner:  planner.New(presets),
		Defaults: cfg.Analysis,
		Provider: provider,
		Metrics:  metrics,
		Logger:   log.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
