package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"

	"github.com/thomhuang/printnearby/internal/api"
	"github.com/thomhuang/printnearby/internal/config"
	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/metrics"
	"github.com/thomhuang/printnearby/internal/nearby"
	"github.com/thomhuang/printnearby/internal/store"
	"github.com/thomhuang/printnearby/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the gazetteer and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func runServe(ctx context.Context, cfg *config.Config) error {
	g, err := gazetteer.Load(cfg.Gazetteer.Path)
	if err != nil {
		// no geospatial query may be served without the index
		logging.Fatal().Err(err).Str("path", cfg.Gazetteer.Path).Msg("cannot load ZIP gazetteer")
	}
	metrics.GazetteerRecords.Set(float64(g.Located()))
	logging.Info().
		Str("path", cfg.Gazetteer.Path).
		Int("records", g.Len()).
		Int("indexed", g.Located()).
		Msg("gazetteer loaded")

	backend, err := store.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return err
	}
	providers := store.NewBreaker(backend, store.BreakerConfig{
		ConsecutiveFailures: cfg.Store.BreakerFailures,
		OpenTimeout:         cfg.Store.BreakerTimeout,
	})
	defer providers.Close()

	svc := nearby.NewService(g, providers,
		nearby.WithChunkSize(cfg.Store.MaxInFilter),
		nearby.WithParallelism(cfg.Search.Parallelism),
	)
	handler := api.NewHandler(svc,
		api.WithMaxRadius(cfg.Search.MaxRadiusMiles),
		api.WithReadiness(func() error {
			if providers.State() == gobreaker.StateOpen {
				return errors.New("provider store circuit is open")
			}
			return nil
		}),
	)

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(handler, api.RouterConfig{
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree := supervisor.New("printnearby", supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.Add(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shut down")
	return nil
}
