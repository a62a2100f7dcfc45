package main

import (
	"context"
	"errors"

	"collegesave/internal/amqp"
	"collegesave/internal/cli"
	applog "collegesave/internal/log"
	"collegesave/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting projection worker",
		"queue", cfg.AMQPQueue,
		"exchange", cfg.AMQPExchange,
		"concurrency", cfg.WorkerConcurrency)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	w := worker.NewProjectionWorker(logger)
	err = client.ConsumeProjectionRequests(ctx, cfg.WorkerConcurrency, w.Handle)

	stats := w.Stats()
	if err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err, "processed", stats.Processed, "rejected", stats.Rejected)
	}
	logger.Info("Worker shutdown complete", "processed", stats.Processed, "rejected", stats.Rejected)
}
