package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/amqp"
	"finances/internal/cli"
	"finances/internal/log"
	"finances/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream changed records from the AMQP queue as JSON lines",
	Long: `watch consumes the change messages a serve process publishes, re-reads
each record from the database and prints it as one JSON object per line.
Requires AMQP_URL.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(envFile)
	if err != nil {
		return err
	}
	if !cfg.AMQPEnabled() {
		return errors.New("watch requires AMQP_URL")
	}
	// stdout carries the change stream
	logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
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

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	w := worker.NewChangeWorker(repo, cmd.OutOrStdout())
	amqpLogger := logger.WithComponent(log.ComponentAMQP)
	amqpLogger.InfoContext(ctx, "Watching changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = client.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
		return w.HandleChangeMessage(ctx, msg)
	})
	m := w.GetMetrics()
	amqpLogger.Info("Watch stopped", "handled", m.Handled, "missing", m.Missing, "failed", m.Failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume changes: %w", err)
	}
	return nil
}
