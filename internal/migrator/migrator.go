package migrator

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/zlog"
)

// Migrator обертка над golang-migrate для схемы очереди уведомлений.
type Migrator struct {
	migrate *migrate.Migrate
}

// NewMigrator создает Migrator для файлов миграций из migrationsDir.
func NewMigrator(db *sql.DB, migrationsDir string) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}

	if err := checkDir(migrationsDir); err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(normalizePath(migrationsDir), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	return &Migrator{m}, nil
}

func checkDir(migrationsDir string) error {
	if migrationsDir == "" {
		return errors.New("migrations directory is empty")
	}
	info, err := os.Stat(trimScheme(migrationsDir))
	if err != nil {
		return fmt.Errorf("cannot access migrations path %q: %w", migrationsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("migrations path %q is not a directory", migrationsDir)
	}
	return nil
}

// Up накатывает все непримененные миграции.
func (m *Migrator) Up() error {
	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Down откатывает все примененные миграции.
func (m *Migrator) Down() error {
	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Version возвращает текущую версию схемы, 0 если миграции не применялись.
func (m *Migrator) Version() (uint, error) {
	ver, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, err
	}
	if dirty {
		return ver, fmt.Errorf("database is dirty at version %d (migration failed midway)", ver)
	}
	return ver, nil
}

// Close освобождает ресурсы.
func (m *Migrator) Close() error {
	if m.migrate == nil {
		return nil
	}
	serr, derr := m.migrate.Close()
	return errors.Join(serr, derr)
}

// migrateLogger направляет вывод golang-migrate в zlog.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	zlog.Logger.Info().Msgf(format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}
