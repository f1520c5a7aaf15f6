package main

import (
	"context"
	"os"
	"time"

	"finboard/internal/cli"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/worker"
)

// snapshotRetention is how long an unrefreshed snapshot is kept.
const snapshotRetention = 90 * 24 * time.Hour

func main() {
	logger, cfg := cli.Bootstrap()
	logger.Info("Starting finboard-worker")

	res := cli.InitBackend(context.Background(), logger, cfg)
	if res.Snapshots == nil || res.Upstream == nil {
		logger.Error("The worker needs DATA_BACKEND=sqlite", applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	w := worker.NewSnapshotWorker(res.Upstream, res.Snapshots, nil)
	loc := core.LoadLocation(cfg.Timezone)

	// Loops still running hold the store; cleanup waits for them first.
	stopped := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			logger.Warn("Worker loops still running at shutdown")
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	})

	var consume func(context.Context) error
	if amqpClient != nil {
		consume = func(ctx context.Context) error {
			return amqpClient.ConsumeRefresh(ctx, w.HandleRefreshMessage)
		}
	} else {
		logger.Info("Skipping refresh consumption - only periodic warm-up runs")
	}

	go func() {
		defer close(stopped)
		w.Serve(ctx, worker.ServeConfig{
			Interval:   cfg.SnapshotInterval,
			Location:   loc,
			Retention:  snapshotRetention,
			PruneEvery: 24 * time.Hour,
		}, consume)
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
