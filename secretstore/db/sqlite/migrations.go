package sqlite

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"massnet.org/mass-secretstore/logging"
)

const migrationsTable = "secretstore_migrations"

//go:embed migrations/*.sql
var sqlSchemas embed.FS

// migrationLogger routes golang-migrate output to the store log.
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...interface{}) {
	logging.CPrint(logging.DEBUG, "sqlite migration", logging.LogFormat{
		"format": format,
		"args":   v,
	})
}

func (migrationLogger) Verbose() bool {
	return false
}

// applyMigrations brings the schema of sdb up to the latest embedded
// version. The migrate instance is never closed since that would close sdb.
func applyMigrations(sdb *sql.DB) error {
	driver, err := sqlite_migrate.WithInstance(sdb, &sqlite_migrate.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return err
	}

	src, err := iofs.New(sqlSchemas, "migrations")
	if err != nil {
		return err
	}

	sqlMigrate, err := migrate.NewWithInstance("iofs", src, dbType, driver)
	if err != nil {
		return err
	}
	sqlMigrate.Log = migrationLogger{}

	version, dirty, err := sqlMigrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logging.CPrint(logging.DEBUG, "applying sqlite migrations",
		logging.LogFormat{"version": version, "dirty": dirty})

	if err := sqlMigrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SqliteDB) SchemaVersion() (uint, error) {
	var version uint
	err := s.db.QueryRow("SELECT version FROM " + migrationsTable).Scan(&version)
	return version, err
}
