package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/pkg/server"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "~/.config/parley/server.toml", "Path to config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	redisAddr := flag.String("redis", "", "Redis address (overrides config, 'memory' for in-process storage)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Parley Server %s\n", Version)
		os.Exit(0)
	}

	// Load configuration (creates default if not found)
	config, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		config.Server.ListenAddress = *listen
	}
	if *redisAddr != "" {
		config.Redis.Address = *redisAddr
	}

	logger := newLogger(config.Server.LogLevel, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := newStorage(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer storage.Close()

	s := server.NewServer(config, storage, logger)
	if err := s.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func newStorage(ctx context.Context, config server.TOMLConfig, logger zerolog.Logger) (server.Storage, error) {
	if config.Redis.Address == "memory" {
		logger.Warn().Msg("using in-process storage, state will not survive restarts")
		return server.NewMemoryStorage(), nil
	}
	return server.NewRedisStorage(ctx, config.Redis.Address, logger)
}
