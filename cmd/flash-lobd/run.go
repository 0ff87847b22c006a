package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cedrichaddad/flash-lob/internal/config"
	"github.com/cedrichaddad/flash-lob/internal/engine"
	"github.com/cedrichaddad/flash-lob/internal/ingress"
	"github.com/cedrichaddad/flash-lob/internal/logging"
	"github.com/cedrichaddad/flash-lob/internal/metrics"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

func newRunCmd(configPath *string) *cobra.Command {
	var withProducer bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine, serving metrics and (optionally) a synthetic order-flow producer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(*configPath, withProducer)
		},
	}
	cmd.Flags().BoolVar(&withProducer, "with-producer", false,
		"drive the engine with a synthetic command producer instead of waiting on an external one")
	return cmd
}

func runEngine(configPath string, withProducer bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		return err
	}
	defer log.Sync()

	mx := metrics.NewEngine(cfg.Engine.Symbol)

	eng := engine.New(engine.Config{
		Symbol:                 cfg.Engine.Symbol,
		ArenaCapacity:          cfg.Engine.ArenaCapacity,
		CommandRingCapacity:    cfg.Engine.CommandRingCapacity,
		EventRingCapacity:      cfg.Engine.EventRingCapacity,
		SnapshotDepth:          cfg.Engine.SnapshotDepth,
		SnapshotEveryNCommands: cfg.Engine.SnapshotEveryNCommands,
	}, log, mx)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	go drainEvents(ctx, eng, log)

	if withProducer {
		producer := ingress.NewProducer(ingress.Config{
			OrdersPerSecond:  cfg.Ingress.OrdersPerSecond,
			MaxPriceTicks:    lob.Price(cfg.Ingress.MaxPriceTicks),
			CircuitThreshold: cfg.Ingress.CircuitThreshold,
		}, log, time.Now().UnixNano())
		go func() {
			if err := producer.Run(ctx, eng.Commands); err != nil {
				log.Info("producer stopped", zap.Error(err))
			}
		}()
	}

	log.Info("engine starting", zap.String("symbol", cfg.Engine.Symbol))
	err = eng.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// drainEvents logs every event the engine emits at debug level, the way
// a real deployment's downstream consumer would instead publish them
// onward. It exits as soon as the context is done; events still queued
// on the ring at that point are not logged.
func drainEvents(ctx context.Context, eng *engine.Engine, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, err := eng.Events.TryPop()
		if err != nil {
			time.Sleep(time.Millisecond)
			continue
		}
		log.Debug("event", zap.String("kind", ev.Kind.String()), zap.Uint64("order_id", uint64(ev.OrderID)))
	}
}
