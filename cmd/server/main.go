package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/npezzotti/go-notechat/internal/api"
	"github.com/npezzotti/go-notechat/internal/config"
	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/npezzotti/go-notechat/internal/presence"
	"github.com/npezzotti/go-notechat/internal/server"
	"github.com/npezzotti/go-notechat/internal/stats"
	"github.com/redis/go-redis/v9"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	configFile     string
	addr           string
	signingKey     string
	allowedOrigins stringSliceFlag
	redisAddr      string
	poolSize       int
	keepAlive      time.Duration
)

func loadOptions() (config.Options, error) {
	opts := config.DefaultOptions()
	opts.SigningKey = defaultSigningKey

	if configFile != "" {
		if err := opts.LoadFile(configFile); err != nil {
			return opts, err
		}
	}

	if err := opts.LoadEnv(os.Getenv); err != nil {
		return opts, err
	}

	// explicitly set flags win over every other layer
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			opts.Addr = addr
		case "signing-key":
			opts.SigningKey = signingKey
		case "allowed-origins":
			opts.AllowedOrigins = allowedOrigins
		case "redis-addr":
			opts.RedisAddr = redisAddr
		case "pool-size":
			opts.PoolSize = poolSize
		case "keep-alive":
			opts.KeepAliveInterval = keepAlive
		}
	})

	return opts, nil
}

func newRegistry(ctx context.Context, logger *log.Logger, cfg *config.Config) (presence.Registry, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Println("using in-memory presence registry")
		return presence.NewMemoryRegistry(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Printf("using redis presence registry at %s", cfg.RedisAddr)
	return presence.NewRedisRegistry(client, ""), func() { client.Close() }, nil
}

type relayShutdowner interface {
	Shutdown(ctx context.Context) error
}

type statsStopper interface {
	Stop()
}

// shutdownRelay stops the relay and then the stats updater. A relay that
// did not stop in time may still report metrics, so the updater stays up.
func shutdownRelay(ctx context.Context, logger *log.Logger, relay relayShutdowner, su statsStopper) bool {
	if err := relay.Shutdown(ctx); err != nil {
		logger.Println("relay shutdown:", err)
		return false
	}

	su.Stop()
	return true
}

func main() {
	flag.StringVar(&configFile, "config", "", "path to a YAML config file")
	flag.StringVar(&addr, "addr", "", "server address")
	flag.StringVar(&signingKey, "signing-key", "", "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for the presence registry; in-memory when empty")
	flag.IntVar(&poolSize, "pool-size", config.DefaultPoolSize, "maximum open database connections")
	flag.DurationVar(&keepAlive, "keep-alive", config.DefaultKeepAliveInterval, "database keep-alive ping interval")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-notechat] ", log.LstdFlags)

	opts, err := loadOptions()
	if err != nil {
		logger.Fatal("config:", err)
	}
	if opts.SigningKey == defaultSigningKey {
		logger.Println("warning: using the built-in signing key")
	}

	cfg, err := config.NewConfig(opts)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgNotesRepository(logger, cfg.DatabaseDSN, database.PoolOptions{
		MaxOpenConns: cfg.PoolSize,
	})
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	keepAliveCtx, stopKeepAlive := context.WithCancel(context.Background())
	defer stopKeepAlive()
	go dbConn.KeepAlive(keepAliveCtx, cfg.KeepAliveInterval)

	registry, closeRegistry, err := newRegistry(context.Background(), logger, cfg)
	if err != nil {
		logger.Fatal("presence registry:", err)
	}
	defer closeRegistry()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux, "notechat")

	relay := server.NewRelay(logger, dbConn, registry, statsUpdater)

	srv := api.NewGoChatApp(mux, logger, relay, dbConn, cfg)

	statsUpdater.Run()

	go relay.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutting down relay...")
	shutdownRelay(shutDownCtx, logger, relay, statsUpdater)

	logger.Println("shutdown complete")
}
