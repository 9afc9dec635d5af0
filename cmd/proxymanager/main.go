package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/wudi/proxymanager/internal/config"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/server"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/proxymanager.yaml"

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envFile := flag.String("env-file", "", "Optional dotenv file loaded before the configuration")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Proxy Manager %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	loader := config.NewLoader()
	if err := loader.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	// The default path is optional; an explicit one must exist.
	var (
		cfg *config.Config
		err error
	)
	if *configPath == defaultConfigPath {
		cfg, err = loader.LoadOrDefault(*configPath)
	} else {
		cfg, err = loader.Load(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	os.Exit(run(cfg, *configPath))
}

func run(cfg *config.Config, configPath string) int {
	// Initialize structured logger
	logger, closer, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSize:    cfg.Logging.Rotation.MaxSize,
		MaxBackups: cfg.Logging.Rotation.MaxBackups,
		MaxAge:     cfg.Logging.Rotation.MaxAge,
		Compress:   cfg.Logging.Rotation.Compress,
		LocalTime:  cfg.Logging.Rotation.LocalTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	if closer != nil {
		defer closer.Close()
	}
	logging.SetGlobal(logger)
	defer logging.Sync()

	logging.Info("Starting Proxy Manager",
		zap.String("version", version),
		zap.String("config", configPath),
		zap.String("listen", cfg.Listen.Address),
		zap.String("geoip_database", cfg.GeoIP.Database),
	)

	srv, err := server.New(cfg)
	if err != nil {
		logging.Error("Failed to create server", zap.Error(err))
		return 1
	}

	if err := srv.Run(context.Background()); err != nil {
		logging.Error("Server error", zap.Error(err))
		return 1
	}
	return 0
}
