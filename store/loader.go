package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alt-coder/synthio/config"
)

// LoadReport summarizes one imported CSV file.
type LoadReport struct {
	Table string
	Rows  int
}

// Loader imports CSV files into database tables, replacing any table
// that already exists. The table name is the file name without its
// extension, so hcp_dim.csv becomes the hcp_dim table.
type Loader struct {
	store *SQLStore
}

// NewLoader creates a loader writing through the given store.
func NewLoader(store *SQLStore) *Loader {
	return &Loader{store: store}
}

// LoadDirectory imports every *.csv file in dir, in name order.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]LoadReport, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", dir)
	}
	sort.Strings(paths)

	reports := make([]LoadReport, 0, len(paths))
	for _, path := range paths {
		report, err := l.LoadFile(ctx, path)
		if err != nil {
			return reports, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LoadFile imports a single CSV file into its table.
func (l *Loader) LoadFile(ctx context.Context, path string) (LoadReport, error) {
	table := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := validateIdentifier(table); err != nil {
		return LoadReport{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return LoadReport{}, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return LoadReport{}, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return LoadReport{}, fmt.Errorf("file is empty")
	}

	header := records[0]
	rows := records[1:]
	for _, column := range header {
		if err := validateIdentifier(column); err != nil {
			return LoadReport{}, fmt.Errorf("bad column header: %w", err)
		}
	}

	kinds := inferColumnKinds(header, rows)
	if err := l.replaceTable(ctx, table, header, kinds); err != nil {
		return LoadReport{}, err
	}
	if err := l.insertRows(ctx, table, header, kinds, rows); err != nil {
		return LoadReport{}, err
	}

	logrus.WithFields(logrus.Fields{
		"table": table,
		"rows":  len(rows),
	}).Info("loaded CSV file")

	return LoadReport{Table: table, Rows: len(rows)}, nil
}

func (l *Loader) replaceTable(ctx context.Context, table string, header []string, kinds []valueKind) error {
	if _, err := l.store.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("dropping table %s: %w", table, err)
	}

	defs := make([]string, len(header))
	for i, column := range header {
		defs[i] = column + " " + l.columnType(kinds[i])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := l.store.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

func (l *Loader) insertRows(ctx context.Context, table string, header []string, kinds []valueKind, rows [][]string) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "), l.placeholders(len(header)))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for n, record := range rows {
		if len(record) != len(header) {
			return fmt.Errorf("row %d has %d values, expected %d", n+2, len(record), len(header))
		}
		args := make([]any, len(record))
		for i, value := range record {
			args[i] = convertValue(value, kinds[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", n+2, err)
		}
	}

	return tx.Commit()
}

func (l *Loader) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if l.store.driver == config.DriverPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (l *Loader) columnType(kind valueKind) string {
	switch l.store.driver {
	case config.DriverPostgres:
		switch kind {
		case kindInt:
			return "BIGINT"
		case kindFloat:
			return "DOUBLE PRECISION"
		}
		return "TEXT"
	case config.DriverMySQL:
		switch kind {
		case kindInt:
			return "BIGINT"
		case kindFloat:
			return "DOUBLE"
		}
		return "TEXT"
	default:
		switch kind {
		case kindInt:
			return "INTEGER"
		case kindFloat:
			return "REAL"
		}
		return "TEXT"
	}
}

type valueKind int

const (
	kindInt valueKind = iota
	kindFloat
	kindText
)

// inferColumnKinds scans all values of each column and picks the
// narrowest type that fits every non-empty value.
func inferColumnKinds(header []string, rows [][]string) []valueKind {
	kinds := make([]valueKind, len(header))

	for col := range header {
		kind := kindInt
		seen := false
		for _, record := range rows {
			if col >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[col])
			if value == "" {
				continue
			}
			seen = true

			switch kind {
			case kindInt:
				if _, err := strconv.ParseInt(value, 10, 64); err == nil {
					continue
				}
				kind = kindFloat
				fallthrough
			case kindFloat:
				if _, err := strconv.ParseFloat(value, 64); err == nil {
					continue
				}
				kind = kindText
			}
			if kind == kindText {
				break
			}
		}
		if !seen {
			kind = kindText
		}
		kinds[col] = kind
	}

	return kinds
}

// convertValue turns a CSV cell into the insert argument for its column
// type. Empty cells become NULL.
func convertValue(value string, kind valueKind) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	switch kind {
	case kindInt:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}
