// Package main is the entry point for the sentiment dashboard admin CLI.
// It bootstraps and maintains users without going through the web UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	rediscache "github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/cache/redis"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/lock"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/logging"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/factory"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Sentiment Dashboard Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUser(os.Args[2:]); err != nil {
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

// app holds what every user subcommand needs.
type app struct {
	users     *service.UserService
	directory *service.DirectoryService
	close     func()
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	// Keep stdout for command output.
	logger = logger.Output(os.Stderr).Level(zerolog.WarnLevel)

	store, err := factory.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	closers := []func(){func() { _ = store.Close(context.Background()) }}

	// With Redis, running dashboards see CLI changes immediately and the
	// CLI honours the same per-user locks.
	var notifier repository.Notifier
	var locker lock.Locker = lock.NewNoOpLocker()
	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		notifier = rediscache.NewNotifier(client, logger)
		locker = lock.NewRedisLocker(client)
		closers = append(closers, func() { _ = client.Close() })
	}

	directory := service.NewDirectoryService(store.Users(), notifier, cfg.Directory.Channel, nil, logger)
	users := service.NewUserService(service.UserServiceConfig{
		UserRepo:  store.Users(),
		Hasher:    auth.NewBcryptHasher(0),
		Locker:    locker,
		Directory: directory,
	}, logger)

	return &app{
		users:     users,
		directory: directory,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func runUser(args []string) error {
	if len(args) < 1 {
		printUserUsage()
		return errors.New("missing user subcommand")
	}

	sub := args[0]
	fs := flag.NewFlagSet("user "+sub, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("SENTIMEN_CONFIG"), "path to the configuration file")
	username := fs.String("username", "", "username")
	access := fs.String("access", "User", "access control (Admin or User)")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password (prompted when omitted on a terminal)")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if (sub == "create" || sub == "passwd") && *password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		p, err := promptPassword()
		if err != nil {
			return err
		}
		*password = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()

	actor := service.SystemActor

	switch sub {
	case "create":
		out, err := a.users.AddUser(ctx, actor, service.AddUserInput{
			Username:      *username,
			AccessControl: *access,
			Name:          *name,
			Password:      *password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n", out.User.Username, out.User.AccessControl)

	case "list":
		entries, err := a.directory.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USERNAME\tACCESS\tNAME")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Username, e.AccessControl, e.Name)
		}
		return tw.Flush()

	case "delete":
		out, err := a.users.DeleteUser(ctx, actor, *username)
		if err != nil {
			return err
		}
		if !out.Deleted {
			fmt.Printf("No user named %s\n", out.Username)
			return nil
		}
		fmt.Printf("Deleted user %s\n", out.Username)

	case "passwd":
		if err := a.users.SetPassword(ctx, actor, *username, *password); err != nil {
			return err
		}
		fmt.Printf("Password updated for %s\n", *username)

	default:
		printUserUsage()
		return fmt.Errorf("unknown user subcommand: %s", sub)
	}
	return nil
}

// readPassword reads a line from the terminal without echo.
var readPassword = term.ReadPassword

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func printUserUsage() {
	fmt.Println(`Usage:
  sentimen-admin user create --username <name> --access <Admin|User> --name <display> [--password <secret>]
  sentimen-admin user list
  sentimen-admin user delete --username <name>
  sentimen-admin user passwd --username <name> [--password <secret>]

Every subcommand accepts --config <path>.`)
}

func printUsage() {
	fmt.Println(`Sentiment Dashboard Admin CLI

Usage:
  sentimen-admin <command> [arguments]

Commands:
  user        Manage users (create, list, delete, passwd)
  version     Print version information
  help        Show this help message

Examples:
  sentimen-admin user create --username admin --access Admin --name "Admin" --password secret
  sentimen-admin user list --config configs/config.example.yaml
  sentimen-admin user passwd --username admin --password new-secret`)
}
