package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/app"
	"github.com/sean-rowe/weather-resolver/internal/config"
	"github.com/sean-rowe/weather-resolver/internal/version"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a TOML configuration file (defaults to $CONFIG_FILE)")
	showVersion := flag.BoolP("version", "v", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		info := version.Get()
		fmt.Printf("weather-resolver %s (%s, %s)\n", info.Version, info.GitCommit, info.GoVersion)

		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Observability.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	application := app.New(cfg, logger)

	if err := application.Start(context.Background()); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	application.WaitForShutdown()
	application.Stop()
}

// newLogger builds the production logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel

	return cfg.Build()
}
