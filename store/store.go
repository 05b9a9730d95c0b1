// Package store provides read access to the pharmaceutical sales database.
//
// It wraps database/sql with generic row scanning and the introspection
// queries needed to describe the schema to the LLM. SQLite, PostgreSQL,
// and MySQL are supported through their standard drivers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/alt-coder/synthio/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// SQLStore executes queries against the sales database.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database described by settings.
func Open(settings *config.Settings) (*SQLStore, error) {
	var driverName, dsn string

	switch settings.Driver {
	case config.DriverSQLite:
		driverName = "sqlite"
		dsn = settings.DatabasePath
	case config.DriverPostgres:
		driverName = "postgres"
		dsn = settings.DatabaseDSN
	case config.DriverMySQL:
		driverName = "mysql"
		dsn = settings.DatabaseDSN
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", settings.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", settings.Driver, err)
	}

	return New(db, settings.Driver), nil
}

// New wraps an existing database handle. The driver must be one of the
// config.Driver* constants; it selects the introspection queries.
func New(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// Dialect returns the human-readable SQL dialect name, used in prompts.
func (s *SQLStore) Dialect() string {
	switch s.driver {
	case config.DriverPostgres:
		return "PostgreSQL"
	case config.DriverMySQL:
		return "MySQL"
	default:
		return "SQLite"
	}
}

// QueryResult holds the rows of a read query. Columns preserves the
// SELECT order, which the map rows cannot.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Query runs a read query and returns the rows as generic maps, one map
// per row keyed by column name. Byte slice values are converted to
// strings so results marshal cleanly to JSON.
func (s *SQLStore) Query(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// TableNames lists the tables in the connected database.
func (s *SQLStore) TableNames(ctx context.Context) ([]string, error) {
	var query string
	switch s.driver {
	case config.DriverPostgres:
		query = "SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename"
	case config.DriverMySQL:
		query = "SHOW TABLES"
	default:
		query = "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name"
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TableSchema returns the columns of a table.
func (s *SQLStore) TableSchema(ctx context.Context, table string) ([]Column, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}

	switch s.driver {
	case config.DriverPostgres, config.DriverMySQL:
		return s.informationSchemaColumns(ctx, table)
	default:
		return s.sqlitePragmaColumns(ctx, table)
	}
}

func (s *SQLStore) sqlitePragmaColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:       name,
			Type:       ctype,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	return columns, rows.Err()
}

func (s *SQLStore) informationSchemaColumns(ctx context.Context, table string) ([]Column, error) {
	query := `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`
	if s.driver == config.DriverMySQL {
		query = strings.Replace(query, "$1", "?", 1)
	}

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, ctype, nullable string
		if err := rows.Scan(&name, &ctype, &nullable); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:     name,
			Type:     strings.ToUpper(ctype),
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	return columns, rows.Err()
}

// SampleRows returns up to limit rows from a table.
func (s *SQLStore) SampleRows(ctx context.Context, table string, limit int) (*QueryResult, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}
	return s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
}

// RowCount returns the number of rows in a table.
func (s *SQLStore) RowCount(ctx context.Context, table string) (int64, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return count, nil
}

// Ping verifies the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifier guards the introspection helpers, which interpolate
// table names into SQL because drivers cannot parameterize identifiers.
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %q", name)
	}
	return nil
}
