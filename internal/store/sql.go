// internal/store/sql.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"            // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"  // SQLite driver
)

// Dialect names a supported SQL database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Identifier limits per dialect.
const (
	MaxPostgreSQLIdentifierLength = 63
	MaxMySQLIdentifierLength      = 64
	MaxSQLiteIdentifierLength     = 998
)

var sqlIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "FROM": true,
	"WHERE": true, "TABLE": true, "INDEX": true, "ORDER": true, "GROUP": true,
	"KEY": true, "PRIMARY": true, "USER": true, "DROP": true, "CREATE": true,
}

// ValidateTableName checks that name is a plain identifier usable unquoted
// by the dialect.
func ValidateTableName(dialect Dialect, name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	maxLen := MaxSQLiteIdentifierLength
	switch dialect {
	case DialectPostgres:
		maxLen = MaxPostgreSQLIdentifierLength
	case DialectMySQL:
		maxLen = MaxMySQLIdentifierLength
	}
	if len(name) > maxLen {
		return fmt.Errorf("identifier too long (max %d characters): %s", maxLen, name)
	}
	if !sqlIdentifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier format: %s", name)
	}
	if reservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", name)
	}
	return nil
}

// SQLBackend stores values in a key/payload table.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	table   string
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(path, table string) (*SQLBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}

	dsn := path
	if !strings.HasPrefix(path, "file:") && !strings.Contains(path, "?") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open(string(DialectSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return newSQLBackend(db, DialectSQLite, table)
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(dsn, table string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	db, err := sql.Open(string(DialectPostgres), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return newSQLBackend(db, DialectPostgres, table)
}

// OpenMySQL connects to MySQL. Time values are parsed into time.Time.
func OpenMySQL(dsn, table string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}

	db, err := sql.Open(string(DialectMySQL), cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLBackend(db, DialectMySQL, table)
}

// NewSQLBackend wraps an open database. The table is created if missing.
func NewSQLBackend(db *sql.DB, dialect Dialect, table string) (*SQLBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return newSQLBackend(db, dialect, table)
}

func newSQLBackend(db *sql.DB, dialect Dialect, table string) (*SQLBackend, error) {
	if err := ValidateTableName(dialect, table); err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid rules table: %w", err)
	}

	b := &SQLBackend{db: db, dialect: dialect, table: table, now: time.Now}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	if _, err := db.Exec(b.createTableSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return b, nil
}

func (b *SQLBackend) createTableSQL() string {
	switch b.dialect {
	case DialectPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			rule_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, b.table)
	case DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			rule_key VARCHAR(191) NOT NULL PRIMARY KEY,
			payload LONGTEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		) DEFAULT CHARSET=utf8mb4`, b.table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			rule_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, b.table)
	}
}

func (b *SQLBackend) selectSQL() string {
	if b.dialect == DialectPostgres {
		return fmt.Sprintf("SELECT payload FROM %s WHERE rule_key = $1", b.table)
	}
	return fmt.Sprintf("SELECT payload FROM %s WHERE rule_key = ?", b.table)
}

func (b *SQLBackend) upsertSQL() string {
	switch b.dialect {
	case DialectPostgres:
		return fmt.Sprintf(`INSERT INTO %s (rule_key, payload, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (rule_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, b.table)
	case DialectMySQL:
		return fmt.Sprintf(`INSERT INTO %s (rule_key, payload, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`, b.table)
	default:
		return fmt.Sprintf(`INSERT INTO %s (rule_key, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(rule_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`, b.table)
	}
}

// Get implements Backend.
func (b *SQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := b.db.QueryRowContext(ctx, b.selectSQL(), key).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query rules: %w", err)
	}
	return payload, true, nil
}

// Set implements Backend.
func (b *SQLBackend) Set(ctx context.Context, key, value string) error {
	if _, err := b.db.ExecContext(ctx, b.upsertSQL(), key, value, b.now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert rules: %w", err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (b *SQLBackend) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	query := fmt.Sprintf("SELECT updated_at FROM %s WHERE rule_key = ?", b.table)
	if b.dialect == DialectPostgres {
		query = fmt.Sprintf("SELECT updated_at FROM %s WHERE rule_key = $1", b.table)
	}

	var updated time.Time
	err := b.db.QueryRowContext(ctx, query, key).Scan(&updated)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query rule timestamp: %w", err)
	}
	return updated, true, nil
}

// Close implements Backend.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
