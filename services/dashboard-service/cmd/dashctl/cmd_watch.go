package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/kafka"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/service"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		once        bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the run in progress",
		Long: "watch polls the backend and prints one JSON line per progress change.\n" +
			"Updates are published to Kafka when kafka.brokers is configured.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				srv := serveMetrics(a, metricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			var publisher service.EventPublisher
			if len(a.cfg.Kafka.Brokers) > 0 {
				producer := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.ClientID, a.logger)
				defer producer.Close()
				publisher = producer
			}

			watcher := service.NewRunWatcher(a.client, publisher, service.WatcherConfig{
				Interval:    a.cfg.Watch.Interval,
				MaxInterval: a.cfg.Watch.MaxInterval,
				MaxElapsed:  a.cfg.Watch.MaxElapsed,
				LogTail:     a.cfg.Watch.LogTail,
				Topic:       a.cfg.Kafka.Topics.RunProgress,
			}, a.logger)

			out := cmd.OutOrStdout()
			if once {
				progress, err := watcher.Snapshot(ctx)
				if err != nil {
					return err
				}
				return a.print(out, progress)
			}

			err := watcher.Watch(ctx, func(progress model.RunProgress) {
				if err := a.print(out, progress); err != nil {
					a.logger.Warn("Failed to write progress", zap.Error(err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (overrides metrics.addr)")
	f.BoolVar(&once, "once", false, "Print a single snapshot and exit")

	return cmd
}

// serveMetrics exposes the client metrics until the returned server is shut
// down
func serveMetrics(a *app, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
