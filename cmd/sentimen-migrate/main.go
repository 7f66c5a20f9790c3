// Package main is the entry point for the sentiment dashboard migration tool.
// It prepares the user store schema for the configured driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/logging"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/factory"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// versioned is implemented by stores that track applied migrations.
type versioned interface {
	Version(ctx context.Context) (int, error)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Sentiment Dashboard Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "status":
		if err := run(command, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("SENTIMEN_CONFIG"), "path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	logger = logger.Output(os.Stderr).Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := factory.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer store.Close(context.Background())

	switch command {
	case "up":
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		fmt.Printf("Schema ready (driver: %s)\n", cfg.Database.Driver)
		return printVersion(ctx, store)

	default:
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("Driver: %s\nStatus: unreachable (%v)\n", cfg.Database.Driver, err)
			return err
		}
		fmt.Printf("Driver: %s\nStatus: ok\n", cfg.Database.Driver)
		return printVersion(ctx, store)
	}
}

func printVersion(ctx context.Context, store repository.Store) error {
	v, ok := store.(versioned)
	if !ok {
		return nil
	}
	n, err := v.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Printf("Schema version: %d\n", n)
	return nil
}

func printUsage() {
	fmt.Println(`Sentiment Dashboard Migration Tool

Usage:
  sentimen-migrate <command> [--config <path>]

Commands:
  up          Create the users table, collection index or pending migrations
  status      Ping the user store and show the schema version
  version     Print version information
  help        Show this help message

Environment Variables:
  SENTIMEN_CONFIG                 Path to the configuration file
  SENTIMEN_DATABASE_DRIVER        mongo, postgres or sqlite
  MONGO_CONNECTION_STRING         MongoDB URI (legacy name)

Examples:
  sentimen-migrate up --config configs/config.example.yaml
  sentimen-migrate status`)
}
