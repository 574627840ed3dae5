// Command migrate applies the embedded clinicops schema migrations.
//
//	migrate              apply every pending migration
//	migrate down [n]     roll back n migrations (default 1)
//	migrate force <v>    mark version v as clean after a failed run
//	migrate version      print the current version
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appmigrations "github.com/wolfman30/clinicops/migrations"
	"github.com/wolfman30/clinicops/pkg/logging"
)

type command struct {
	name  string
	steps int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	cmd := command{name: strings.ToLower(args[0])}
	switch cmd.name {
	case "up", "version":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.name)
		}
	case "down":
		cmd.steps = 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return command{}, fmt.Errorf("down: invalid step count %q", args[1])
			}
			cmd.steps = n
		}
	case "force":
		if len(args) != 2 {
			return command{}, errors.New("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("force: invalid version %q", args[1])
		}
		cmd.steps = v
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
	return cmd, nil
}

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func run(m migrator, cmd command, out io.Writer) error {
	switch cmd.name {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		_, _ = fmt.Fprintln(out, "migrations complete")
	case "down":
		if err := m.Steps(-cmd.steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		_, _ = fmt.Fprintf(out, "rolled back %d migration(s)\n", cmd.steps)
	case "force":
		if err := m.Force(cmd.steps); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		_, _ = fmt.Fprintf(out, "forced version to %d\n", cmd.steps)
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			_, _ = fmt.Fprintln(out, "no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		_, _ = fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
	}
	return nil
}

func openMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db driver: %w", err)
	}
	src, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}

func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logger.Error("invalid migrate command", "error", err)
		os.Exit(2)
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, closeFn, err := openMigrator(databaseURL)
	if err != nil {
		logger.Error("migrator setup failed", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	if err := run(m, cmd, os.Stdout); err != nil {
		logger.Error("migration failed", "command", cmd.name, "error", err)
		closeFn()
		os.Exit(1)
	}
}
