// Command migration applies the kqsx schema with golang-migrate. Migrations
// are embedded; MIGRATIONS_DIR points it at a directory instead.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	kqsxdb "github.com/riskibarqy/kqsx/db"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

const usage = `usage: migration <command> [arg]

commands:
  up               apply every pending migration
  down [steps]     roll back steps migrations (default 1)
  version          print the applied version and dirty flag
  force <version>  mark version as applied without running it
  goto <version>   migrate up or down to version
`

type command struct {
	name   string
	steps  int
	target uint
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cmd, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(stderr, "migration: %v\n\n%s", err, usage)
		return exitUsage
	}

	logger := logging.New(logging.Options{Level: logging.LevelInfo, Format: logging.FormatConsole, Output: stderr})
	defer func() { _ = logger.Sync() }()

	dbURL := strings.TrimSpace(getenv("DB_URL"))
	if dbURL == "" {
		logger.Error("DB_URL is required")
		return exitUsage
	}

	m, source, err := newMigrator(strings.TrimSpace(getenv("MIGRATIONS_DIR")), dbURL)
	if err != nil {
		logger.Error("create migrator", "error", err)
		return exitFailed
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()
	logger = logger.With("source", source)

	switch cmd.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-cmd.steps)
	case "force":
		err = m.Force(int(cmd.target))
	case "goto":
		err = m.Migrate(cmd.target)
	case "version":
		return printVersion(m, stdout, logger)
	}
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("no migration changes", "command", cmd.name)
	case err != nil:
		logger.Error("migration failed", "command", cmd.name, "error", err)
		return exitFailed
	default:
		logger.Info("migration done", "command", cmd.name, "steps", cmd.steps, "target", cmd.target)
	}
	return exitOK
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}
	cmd := command{name: strings.ToLower(strings.TrimSpace(args[0]))}
	rest := args[1:]
	if len(rest) > 1 {
		return command{}, fmt.Errorf("%s takes at most one argument", cmd.name)
	}

	switch cmd.name {
	case "up", "version":
		if len(rest) > 0 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.name)
		}
	case "down":
		cmd.steps = 1
		if len(rest) > 0 {
			steps, err := strconv.Atoi(strings.TrimSpace(rest[0]))
			if err != nil || steps <= 0 {
				return command{}, fmt.Errorf("down steps must be a positive integer, got %q", rest[0])
			}
			cmd.steps = steps
		}
	case "force", "goto", "migrate":
		if cmd.name == "migrate" {
			cmd.name = "goto"
		}
		if len(rest) == 0 {
			return command{}, fmt.Errorf("%s requires a version", cmd.name)
		}
		target, err := strconv.ParseUint(strings.TrimSpace(rest[0]), 10, 63)
		if err != nil {
			return command{}, fmt.Errorf("invalid version %q", rest[0])
		}
		cmd.target = uint(target)
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}
	return cmd, nil
}

func newMigrator(dir, dbURL string) (*migrate.Migrate, string, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, "", fmt.Errorf("MIGRATIONS_DIR: %w", err)
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("MIGRATIONS_DIR %s is not a directory", dir)
		}
		sourceURL := "file://" + dir
		m, err := migrate.New(sourceURL, dbURL)
		return m, sourceURL, err
	}

	src, err := iofs.New(kqsxdb.Migrations(), kqsxdb.MigrationsDir)
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	return m, "embedded", err
}

func printVersion(m *migrate.Migrate, stdout io.Writer, logger *logging.Logger) int {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Fprintln(stdout, "version: none")
		fmt.Fprintln(stdout, "dirty: false")
	case err != nil:
		logger.Error("read version", "error", err)
		return exitFailed
	default:
		fmt.Fprintf(stdout, "version: %d\n", version)
		fmt.Fprintf(stdout, "dirty: %t\n", dirty)
	}
	return exitOK
}
