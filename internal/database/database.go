// Package database opens the connection pool for the configured driver and creates the
// contacts table through embedded goose migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// goose keeps its dialect and file system in package globals.
var migrateMu sync.Mutex

// DriverName returns the database/sql driver name registered for a configured driver.
func DriverName(driver string) string {
	switch driver {
	case config.DriverPostgres:
		return "pgx"
	case config.DriverSQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// DSN builds the data source name for the configured driver. An explicit DSN wins.
func DSN(cfg config.Database) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch cfg.Driver {
	case config.DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			Host:     cfg.Host,
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		return u.String()
	case config.DriverSQLite:
		return cfg.Name + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		m := mysql.NewConfig()
		m.User = cfg.User
		m.Passwd = cfg.Password
		m.Net = "tcp"
		m.Addr = cfg.Host
		m.DBName = cfg.Name
		m.ParseTime = true
		return m.FormatDSN()
	}
}

// Open initializes the connection pool and verifies that the database is reachable.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open(DriverName(cfg.Driver), DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema of the given driver up to date. Applying it to an already migrated
// database is a no-op.
func Migrate(db *sql.DB, driver string, log *logger.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	dialect := driver
	if driver == config.DriverSQLite {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// gooseLogger forwards goose output to the service logger.
type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Fatal(v ...interface{}) { g.log.Fatal(strings.TrimSpace(fmt.Sprint(v...))) }
func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
func (g gooseLogger) Print(v ...interface{})   { g.log.Info(strings.TrimSpace(fmt.Sprint(v...))) }
func (g gooseLogger) Println(v ...interface{}) { g.log.Info(strings.TrimSpace(fmt.Sprintln(v...))) }
func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
