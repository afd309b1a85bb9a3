package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	auction "gift-auction/internal/auctionService"
	"gift-auction/internal/config"
	"gift-auction/internal/events"
	"gift-auction/internal/idempotency"
	"gift-auction/internal/repository"
	"gift-auction/internal/server"
	"gift-auction/utils"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gift-auction: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gift-auction",
		Short:         "Multi-round sealed-bid gift auction server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveHTTP(ctx, cfg)
		},
	}
	serve.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")

	check := &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cmd.Printf("config ok: listening on %s, storage=%s, idempotency=%s\n", cfg.Addr(), cfg.Storage.Driver, cfg.Idempotency.Driver)
			return nil
		},
	}
	check.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(serve, check)
	return root
}

// serveHTTP wires the backends chosen by cfg and blocks until ctx is cancelled.
func serveHTTP(ctx context.Context, cfg *config.Config) error {
	if err := utils.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clk := clock.New()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var store repository.Store = repository.NewMemoryRepo()
	if cfg.Storage.Driver == "postgres" {
		pg, err := repository.NewPostgresRepo(ctx, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		closers = append(closers, pg.Close)
		store = pg
	}

	var idem idempotency.Store = idempotency.NewMemoryStore(clk, cfg.Idempotency.TTL)
	if cfg.Idempotency.Driver == "redis" {
		rs, err := idempotency.NewRedisStore(ctx, cfg.Idempotency.Address, cfg.Idempotency.Password, cfg.Idempotency.DB, cfg.Idempotency.TTL)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = rs.Close() })
		idem = rs
	}

	sinks := events.Multi{events.LogSink{}, events.NewMetricsSink(reg)}
	if len(cfg.Kafka.Brokers) > 0 {
		ks := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, func() { _ = ks.Close() })
		sinks = append(sinks, ks)
	}

	svc := auction.NewAuctionService(auction.Options{
		Clock:       clk,
		Store:       store,
		Idempotency: idem,
		Sink:        sinks,
	})
	closers = append(closers, svc.Stop)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.SetupRouter(svc, cfg.Auction, reg),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{
			"addr":        srv.Addr,
			"storage":     cfg.Storage.Driver,
			"idempotency": cfg.Idempotency.Driver,
			"kafka":       len(cfg.Kafka.Brokers) > 0,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		utils.Info("shutting down auction server", nil)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
