package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrentstream/bridge/internal/api/http"
	"torrentstream/bridge/internal/app"
	"torrentstream/bridge/internal/bridge"
	"torrentstream/bridge/internal/metrics"
	"torrentstream/bridge/internal/power"
	"torrentstream/bridge/internal/qbt"
	"torrentstream/bridge/internal/remote"
	mongorepo "torrentstream/bridge/internal/repository/mongo"
	redisrepo "torrentstream/bridge/internal/repository/redis"
	"torrentstream/bridge/internal/telemetry"
)

const serviceName = "torrent-bridge"

func main() {
	cfg, err := app.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRate:  cfg.OTelSampleRate,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("qbtURL", cfg.QBTURL),
		slog.String("qbtUsername", cfg.QBTUsername),
		slog.String("remoteURL", cfg.RemoteURL),
		slog.Duration("pollInterval", cfg.PollInterval),
		slog.Duration("httpTimeout", cfg.HTTPTimeout),
		slog.Duration("shutdownDelay", cfg.ShutdownDelay),
		slog.Bool("dryRun", cfg.ShutdownDryRun),
		slog.String("statusAddr", cfg.StatusHTTPAddr),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := qbt.NewClient(qbt.Config{
		BaseURL:  cfg.QBTURL,
		Username: cfg.QBTUsername,
		Password: cfg.QBTPassword,
		Client:   newHTTPClient(cfg.HTTPTimeout),
	})
	if err != nil {
		logger.Error("qbt client init failed", slog.String("error", err.Error()))
		return err
	}
	remoteStore := remote.NewClient(remote.Config{
		Endpoint: cfg.RemoteURL,
		Client:   newHTTPClient(cfg.HTTPTimeout),
		Logger:   logger,
	})

	var shutdowner power.Shutdowner = power.NewExec(logger)
	if cfg.ShutdownDryRun {
		shutdowner = power.NewDryRun(logger)
	}

	var (
		recorders []bridge.Recorder
		history   apihttp.CycleHistory
	)
	journal, mongoClient := buildJournal(rootCtx, cfg, logger)
	if mongoClient != nil {
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(disconnectCtx)
		}()
	}
	if journal != nil {
		recorders = append(recorders, journal)
		history = journal
	}
	mirror, redisClient := buildMirror(rootCtx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	if mirror != nil {
		recorders = append(recorders, mirror)
		if history == nil {
			history = mirror
		}
	}

	loop := bridge.New(bridge.Config{
		Local:         local,
		Remote:        remoteStore,
		Power:         shutdowner,
		Recorders:     recorders,
		Logger:        logger,
		Interval:      cfg.PollInterval,
		ShutdownDelay: cfg.ShutdownDelay,
	})

	server := startStatusServer(cfg, logger, loop, history)
	if server != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown error", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("bridge starting", slog.String("qbtURL", local.BaseURL()))
	if err := loop.Run(rootCtx); err != nil {
		logger.Error("bridge stopped", slog.String("error", err.Error()))
		return err
	}
	logger.Info("bridge exited", slog.String("state", string(loop.State())))
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// buildJournal connects to Mongo when MONGO_URI is set. Any failure disables
// the journal; the bridge runs without it.
func buildJournal(ctx context.Context, cfg app.Config, logger *slog.Logger) (*mongorepo.JournalRepository, *mongo.Client) {
	uri := strings.TrimSpace(cfg.MongoURI)
	if uri == "" {
		return nil, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(connectCtx, uri, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Warn("mongo connect failed, journal disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed, journal disabled", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil, nil
	}

	journal := mongorepo.NewJournalRepository(client, cfg.MongoDatabase, cfg.MongoCollection, cfg.JournalRetention)
	if err := journal.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}
	logger.Info("mongo journal enabled",
		slog.String("database", cfg.MongoDatabase),
		slog.String("collection", cfg.MongoCollection),
		slog.Duration("retention", cfg.JournalRetention),
	)
	return journal, client
}

// buildMirror connects to Redis when REDIS_URL is set. Any failure disables
// the mirror.
func buildMirror(ctx context.Context, cfg app.Config, logger *slog.Logger) (*redisrepo.Mirror, *goredis.Client) {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil, nil
	}
	redisOpts, err := goredis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, mirror disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	client := goredis.NewClient(redisOpts)
	mirror := redisrepo.NewMirror(client, cfg.RedisKeyPrefix, cfg.RedisTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mirror.Ping(pingCtx); err != nil {
		logger.Warn("redis not reachable, mirror disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil, nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return mirror, client
}

func startStatusServer(cfg app.Config, logger *slog.Logger, loop *bridge.Bridge, history apihttp.CycleHistory) *http.Server {
	addr := strings.TrimSpace(cfg.StatusHTTPAddr)
	if addr == "" {
		return nil
	}
	opts := []apihttp.ServerOption{apihttp.WithLogger(logger)}
	if history != nil {
		opts = append(opts, apihttp.WithHistory(history))
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           apihttp.NewServer(loop, opts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", slog.String("error", err.Error()))
		}
	}()
	logger.Info("status server started", slog.String("addr", addr))
	return server
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
