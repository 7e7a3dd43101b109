// Package app wires configuration, storage and HTTP handling into the blog API
// commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/blogapi/backend/internal/config"
	"github.com/blogapi/backend/internal/db"
	"github.com/blogapi/backend/internal/httpserver"
	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
	"github.com/blogapi/backend/internal/repositories"
)

const usage = "usage: blogapi [serve | migrate [up|status] | seed <name> | passwd <username> <password>]"

// errNeedsDatabase is returned by maintenance commands run against the in-memory store.
var errNeedsDatabase = errors.New("command requires a PostgreSQL database, not " + config.MemoryDatabaseURL)

// Run executes one command of the blog API. With no arguments it serves HTTP.
func Run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Println(usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return runMigrations(ctx, cfg, args, os.Stdout)
	case "seed":
		return runSeed(ctx, cfg, args, os.Stdout)
	case "passwd":
		return runPasswd(ctx, cfg, args, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store, data is lost on exit")
	}

	deps, err := buildDependencies(ctx, s, cfg)
	if err != nil {
		return err
	}
	if deps.Avatars == nil {
		logger.Info("avatar uploads disabled, no object store bucket configured")
	}

	srv := httpserver.New(cfg.AppPort, newHandler(deps, cfg, logger), logger)
	return srv.Run(ctx)
}

func runMigrations(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	if command != "up" && command != "status" {
		return fmt.Errorf("unknown migrate command %q", command)
	}
	if cfg.UsesMemoryStore() {
		return errNeedsDatabase
	}

	dir, err := absPath(cfg.MigrationDir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := db.Migrator{Pool: pool, Dir: dir, Out: out}
	if command == "status" {
		return migrator.Status(ctx)
	}
	return migrator.Up(ctx)
}

func runSeed(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}
	if cfg.UsesMemoryStore() {
		return errNeedsDatabase
	}

	dir, err := absPath(cfg.SeedDir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Seed(ctx, pool, dir, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "applied seed %s\n", applied)
	return nil
}

// runPasswd sets a user's password from the command line. Seeded accounts are
// created without a usable password and need this before they can log in.
func runPasswd(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("expected: passwd <username> <password>")
	}
	if cfg.UsesMemoryStore() {
		return errNeedsDatabase
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return setPassword(ctx, repositories.NewPostgresUserRepository(pool), credentials(cfg), args[0], args[1], out)
}

func setPassword(ctx context.Context, users repositories.UserRepository, hasher passwordSetter, username, password string, out io.Writer) error {
	user, err := users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return err
	}
	if err := hasher.SetPassword(&user, password); err != nil {
		return err
	}
	if err := users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user %q: %w", username, err)
	}
	fmt.Fprintf(out, "password updated for %s\n", username)
	return nil
}

type passwordSetter interface {
	SetPassword(user *models.User, plaintext string) error
}

func absPath(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}
