package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finances/internal/amqp"
	"finances/internal/cache"
	"finances/internal/cli"
	apphttp "finances/internal/http"
	"finances/internal/log"
	"finances/internal/notify"
	"finances/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `serve migrates and seeds the database, then serves the JSON API until
SIGINT or SIGTERM. With AMQP_URL set, every committed change is also
published to the configured exchange.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(envFile)
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := cli.GracefulShutdown(cmd.Context(), logger)
	defer stop()

	repo, err := cli.InitSQLite(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := cli.SeedCategories(ctx, logger, repo, cfg.SeedCategoriesFile); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	broker := notify.NewBroker()
	defer broker.Close()

	var stats services.Aggregator = repo
	opts := apphttp.Options{
		RequestTimeout: cfg.RequestTimeout,
		WriteRateLimit: cfg.WriteRateLimit,
		Logger:         logger,
	}
	if cfg.StatsCacheEnabled() {
		cached := services.NewCachedAggregator(repo, broker, cfg.StatsCacheSize, cfg.StatsCacheTTL)
		sweeper := cache.NewManager(logger.WithComponent(log.ComponentStats).Logger)
		cached.Register(sweeper)
		sweeper.StartCleanup(cfg.StatsCacheTTL)
		defer sweeper.Stop()
		stats = cached
		opts.StatsCache = cached
	}

	svc := services.NewFinanceService(repo, stats, broker)
	srv := apphttp.NewServer(cfg.Addr(), svc, repo, broker, opts)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting finances server",
			"addr", srv.Addr,
			"db", cfg.SQLiteDBPath,
			"amqp_enabled", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
			return err
		}
		return nil
	})

	if cfg.AMQPEnabled() {
		startForwarder(gctx, g, logger, broker, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}

// startForwarder relays change events to AMQP. An unreachable broker at
// startup disables forwarding instead of failing the server.
func startForwarder(ctx context.Context, g *errgroup.Group, logger *log.Logger, broker *notify.Broker, url, exchange, queue string) {
	amqpLogger := logger.WithComponent(log.ComponentAMQP)

	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		fields := log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork)
		amqpLogger.WarnContext(ctx, "AMQP unavailable, change forwarding disabled", fields.ToSlice()...)
		return
	}

	fwd := amqp.NewForwarder(client, broker)
	g.Go(func() error {
		defer client.Close()
		amqpLogger.InfoContext(ctx, "Forwarding changes to AMQP", "exchange", exchange, "queue", queue)
		if err := fwd.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("amqp forwarder: %w", err)
		}
		return nil
	})
}
