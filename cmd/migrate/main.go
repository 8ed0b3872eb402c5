package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// migrator is the subset of *migrate.Migrate the commands need.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
}

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down or version")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}

	m, err := migrate.New(source, dbURL)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, *mode); err != nil {
		log.Fatal(err)
	}
}

func run(m migrator, mode string) error {
	switch mode {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no pending migrations")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		fmt.Println("migrations applied successfully")
		return nil

	case "down":
		err := m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) || isNoMigration(err) {
			fmt.Println("no migrations to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Println("rollback successful")
		return nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read version: %w", err)
		}
		fmt.Printf("current version: %d (dirty=%t)\n", version, dirty)
		return nil

	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'version')", mode)
	}
}

func isNoMigration(err error) bool {
	var target migrate.ErrShortLimit
	return errors.As(err, &target) || errors.Is(err, os.ErrNotExist)
}
