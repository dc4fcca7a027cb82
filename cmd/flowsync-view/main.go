// Command flowsync-view keeps a live snapshot of the FlowSync traffic
// feed and serves it to the 3D front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/harkirath1511/AV-TFOS/api"
	"github.com/harkirath1511/AV-TFOS/config"
	"github.com/harkirath1511/AV-TFOS/feed"
	"github.com/harkirath1511/AV-TFOS/seed"
	"github.com/harkirath1511/AV-TFOS/traffic"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Protocol: 2,
		})
		defer rdb.Close()
	}

	lights, err := loadLights(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	logger.Info("traffic lights seeded", "count", len(lights))

	store := traffic.NewStore(
		traffic.WithLogger(logger),
		traffic.WithLights(lights),
		traffic.WithAlerts(traffic.LogAlerts{Logger: logger}),
	)

	var server *http.Server
	var serverErr <-chan error
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewHandler(store, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serverErr = serve(server, logger, stop)
	}

	supervisor := &feed.Supervisor{
		Connect: connector(cfg, rdb, store, logger),
		Backoff: feed.Backoff{
			Initial:     feed.DefaultBackoff.Initial,
			Max:         feed.DefaultBackoff.Max,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		},
		Logger:    logger,
		OnConnect: func(m *feed.Manager) { go watchStatus(m, logger) },
	}
	feedErr := supervisor.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down snapshot API", "error", err)
		}
	}
	logger.Info("shut down", "vehicles", len(store.Vehicles()), "emergencies", len(store.Emergencies()))
	select {
	case err := <-serverErr:
		return errors.Join(feedErr, fmt.Errorf("snapshot API: %w", err))
	default:
		return feedErr
	}
}

// serve runs server in the background. If it stops for any reason other
// than Shutdown, the error is sent on the returned channel and stop is
// called so the feed winds down too.
func serve(server *http.Server, logger *slog.Logger, stop func()) <-chan error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting snapshot API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("snapshot API stopped", "error", err)
			errc <- err
			stop()
		}
	}()
	return errc
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadLights(ctx context.Context, cfg config.Config, rdb *redis.Client) ([]traffic.TrafficLight, error) {
	switch {
	case cfg.LightsFile != "":
		return seed.LoadFile(cfg.LightsFile)
	case cfg.LightsRedisKey != "":
		return seed.LoadRedis(ctx, rdb, cfg.LightsRedisKey)
	default:
		return nil, nil
	}
}

func connector(cfg config.Config, rdb *redis.Client, store *traffic.Store, logger *slog.Logger) feed.ConnectFunc {
	if cfg.Source == config.SourceRedis {
		return func(ctx context.Context) (*feed.Manager, error) {
			source, err := feed.SubscribeRedis(ctx, rdb, cfg.RedisChannel)
			if err != nil {
				return nil, err
			}
			return feed.New(source, store, feed.WithLogger(logger)), nil
		}
	}
	return func(ctx context.Context) (*feed.Manager, error) {
		return feed.Connect(ctx, cfg.Endpoint, store, feed.WithLogger(logger))
	}
}

// watchStatus logs lifecycle changes until the connection is gone.
func watchStatus(m *feed.Manager, logger *slog.Logger) {
	for status := range m.Status() {
		logger.Debug("feed status", "state", status.State, "session", status.Session, "error", status.Err)
	}
}
