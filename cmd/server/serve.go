package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Henry-E/auction-house/api/grpcserver"
	"github.com/Henry-E/auction-house/config"
	"github.com/Henry-E/auction-house/infra/kafka"
	"github.com/Henry-E/auction-house/infra/metrics"
	"github.com/Henry-E/auction-house/infra/outbox"
	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/infra/wal/entry"
	"github.com/Henry-E/auction-house/jobs/broadcaster"
	"github.com/Henry-E/auction-house/jobs/crank"
	"github.com/Henry-E/auction-house/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Recover from the journal, then serve gRPC and run the background jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// ---------------- State ----------------

	st, err := store.Open(cfg.Store.Dir, store.Options{})
	if err != nil {
		return err
	}
	defer st.Close()

	journal, err := entry.Open(entry.Config{Dir: cfg.Journal.Dir, SegmentSize: cfg.Journal.SegmentSize})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	// ---------------- Service ----------------

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc, err := service.New(service.Options{
		Store:         st,
		Journal:       journal,
		Opener:        sealbox.Opener{},
		Logger:        log,
		Metrics:       m,
		BookCapacity:  cfg.Book.Capacity,
		EventCapacity: cfg.Events.Capacity,
	})
	if err != nil {
		return err
	}
	if _, err := svc.Recover(ctx, cfg.Journal.Dir); err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	pub, err := newPublisher(cfg.Broadcaster)
	if err != nil {
		return err
	}

	// ---------------- Servers ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcserver.LoggingInterceptor(log)))
	grpcserver.NewServer(svc).Register(grpcSrv)

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ---------------- Run ----------------

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", lis.Addr().String()).Msg("grpc listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limits := crank.Limits{
			Clearing: cfg.Crank.ClearingLimit,
			Match:    cfg.Crank.MatchLimit,
			Consume:  cfg.Crank.ConsumeLimit,
		}
		return crank.New(svc, limits, cfg.Crank.Interval, log).Run(ctx)
	})
	if pub != nil {
		bc := broadcaster.New(outbox.New(st), pub, cfg.Broadcaster.Interval, log, m)
		g.Go(func() error {
			defer bc.Close()
			return bc.Run(ctx)
		})
	}
	if cfg.Snapshot.Interval > 0 {
		g.Go(func() error {
			return svc.RunSnapshotJob(ctx, cfg.Snapshot.Dir, cfg.Snapshot.Interval)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		grpcSrv.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newPublisher returns nil when broadcasting is disabled.
func newPublisher(cfg config.BroadcasterConfig) (broadcaster.Publisher, error) {
	switch cfg.Driver {
	case config.DriverSarama:
		p, err := kafka.NewSyncProducer(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, fmt.Errorf("sarama producer: %w", err)
		}
		return p, nil
	case config.DriverKafkaGo:
		return kafka.NewProducer(cfg.Brokers, cfg.Topic), nil
	default:
		return nil, nil
	}
}
