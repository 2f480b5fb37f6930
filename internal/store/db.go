package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-sql-driver/mysql"
	"github.com/m-mizutani/goerr/v2"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps a sql.DB connection to the warmth database.
type DB struct {
	*sql.DB
	Driver string
	// Path is the sqlite file path, or the driver name for network databases
	// (their DSNs carry credentials).
	Path string

	ids *snowflake.Node
}

// Options selects and configures the backing database.
type Options struct {
	Driver string
	// DSN is a file path for sqlite and a connection string otherwise.
	DSN string
	// NodeID seeds snapshot id generation; distinct per process writing the same database.
	NodeID int64
}

// DefaultDBPath returns the default database path: ~/.warmth/warmth.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".warmth", "warmth.db"), nil
}

// Open connects to the configured database, configures it and runs migrations.
func Open(opts Options) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}

	var (
		sqlDB *sql.DB
		path  = opts.Driver
		err   error
	)
	switch opts.Driver {
	case DriverSQLite:
		if opts.DSN == "" {
			return nil, goerr.New("sqlite path required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0755); err != nil {
			return nil, goerr.Wrap(err, "create db dir", goerr.V("path", opts.DSN))
		}
		path = opts.DSN
		sqlDB, err = sql.Open("sqlite", sqliteDSN(opts.DSN))
	case DriverPostgres:
		sqlDB, err = sql.Open("postgres", opts.DSN)
	case DriverMySQL:
		var dsn string
		dsn, err = mysqlDSN(opts.DSN)
		if err == nil {
			sqlDB, err = sql.Open("mysql", dsn)
		}
	default:
		return nil, goerr.New("unsupported database driver", goerr.V("driver", opts.Driver))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "open database", goerr.V("driver", opts.Driver))
	}

	return setup(sqlDB, opts.Driver, path, opts.NodeID)
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection to :memory: would be its own empty database.
	sqlDB.SetMaxOpenConns(1)
	return setup(sqlDB, DriverSQLite, ":memory:", 1)
}

func setup(sqlDB *sql.DB, driver, path string, nodeID int64) (*DB, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		sqlDB.Close()
		return nil, goerr.Wrap(err, "snowflake node", goerr.V("node_id", nodeID))
	}

	db := &DB{DB: sqlDB, Driver: driver, Path: path, ids: node}
	if driver == DriverSQLite {
		if err := db.configurePragmas(); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	if err := db.Ping(); err != nil {
		sqlDB.Close()
		return nil, goerr.Wrap(err, "ping database", goerr.V("driver", driver))
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// sqliteDSN applies per-connection pragmas through the DSN so every pooled
// connection enforces foreign keys.
func sqliteDSN(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
}

// mysqlDSN forces the options the store relies on: found-rows semantics for
// UPDATE row counts, and no client-side time parsing (times are epoch ms).
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", goerr.Wrap(err, "parse mysql dsn")
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = false
	return cfg.FormatDSN(), nil
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the driver's style.
func (db *DB) rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
