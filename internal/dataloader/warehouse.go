package dataloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver, Redshift speaks the same protocol
	"github.com/pkg/errors"
)

// Opener opens a database handle for a single invocation. The loader closes it.
type Opener func(ctx context.Context) (*sqlx.DB, error)

// PostgresOpener connects and pings through lib/pq.
func PostgresOpener(dsn string) Opener {
	return func(ctx context.Context) (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "postgres", dsn)
	}
}

// CommitMode selects the transaction boundary used for data rows.
type CommitMode string

const (
	// CommitBatch inserts every valid row in one transaction.
	CommitBatch CommitMode = "batch"
	// CommitPerRow commits each row on its own and keeps going past failures.
	CommitPerRow CommitMode = "per-row"
)

// ParseCommitMode maps a config value to a CommitMode. Empty means CommitBatch.
func ParseCommitMode(s string) (CommitMode, error) {
	switch CommitMode(strings.ToLower(s)) {
	case "", CommitBatch:
		return CommitBatch, nil
	case CommitPerRow:
		return CommitPerRow, nil
	}
	return "", errors.Errorf("unknown commit mode %q", s)
}

// RowError records a data row that was not loaded. Row is 1-based and
// excludes the header.
type RowError struct {
	Row int
	Err error
}

func (r RowError) Error() string {
	return fmt.Sprintf("row %d: %v", r.Row, r.Err)
}

// LoadResult summarizes one load.
type LoadResult struct {
	Table    string
	Inserted int
	Failed   []RowError
}

// Err reports a KindInsert error when any row failed.
func (r *LoadResult) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	return newError(KindInsert, "insert rows", errors.Errorf("%d of %d rows failed, first %v",
		len(r.Failed), r.Inserted+len(r.Failed), r.Failed[0]))
}

// Load connects, ensures the table and inserts rows. The connection is
// released on every return path.
func (d *DataLoader) Load(ctx context.Context, schema TableSchema, rows [][]string) (*LoadResult, error) {
	start := time.Now()
	db, err := d.Open(ctx)
	if err != nil {
		level.Error(d.Logger).Log("msg", "warehouse connection failure", "err", err)
		return nil, newError(KindConnect, "open", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			level.Warn(d.Logger).Log("msg", "closing warehouse handle", "err", err)
		}
	}()

	conn, err := db.Connx(ctx)
	if err != nil {
		level.Error(d.Logger).Log("msg", "warehouse connection failure", "err", err)
		return nil, newError(KindConnect, "acquire connection", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			level.Warn(d.Logger).Log("msg", "releasing warehouse connection", "err", err)
		}
	}()
	level.Info(d.Logger).Log("msg", "connected to warehouse", "table_name", schema.Table)

	if err := d.ensureTable(ctx, conn, schema); err != nil {
		return nil, err
	}

	result := &LoadResult{Table: schema.Table}
	switch d.CommitMode {
	case CommitPerRow:
		err = d.insertPerRow(ctx, conn, schema, rows, result)
	default:
		err = d.insertBatch(ctx, conn, schema, rows, result)
	}

	logger := level.Info(d.Logger)
	if err != nil || len(result.Failed) > 0 {
		logger = level.Error(d.Logger)
	}
	logger.Log("msg", "load finished",
		"elapsed_time", time.Since(start),
		"table_name", schema.Table,
		"inserted", result.Inserted,
		"failed", len(result.Failed))

	if err != nil {
		return result, err
	}
	return result, result.Err()
}

// ensureTable issues CREATE TABLE IF NOT EXISTS in autocommit. An existing
// table is left as is, its columns are not compared.
func (d *DataLoader) ensureTable(ctx context.Context, conn *sqlx.Conn, schema TableSchema) error {
	query := schema.CreateTableQuery()
	level.Debug(d.Logger).Log("msg", "built create table query", "generated_query", query)
	if _, err := conn.ExecContext(ctx, query); err != nil {
		level.Error(d.Logger).Log("msg", "create table failure", "table_name", schema.Table, "err", err)
		return newError(KindDDL, "create table", errors.Wrap(err, schema.Table))
	}
	level.Info(d.Logger).Log("msg", "table ensured", "table_name", schema.Table, "columns", len(schema.Columns))
	return nil
}

func (d *DataLoader) insertBatch(ctx context.Context, conn *sqlx.Conn, schema TableSchema, rows [][]string, result *LoadResult) error {
	var valid [][]string
	var numbers []int
	for i, row := range rows {
		if err := checkWidth(schema, row); err != nil {
			result.Failed = append(result.Failed, RowError{Row: i + 1, Err: err})
			continue
		}
		valid = append(valid, row)
		numbers = append(numbers, i+1)
	}
	if len(valid) == 0 {
		return nil
	}

	query := schema.InsertQuery()
	level.Debug(d.Logger).Log("msg", "built insert query", "generated_query", query)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return newError(KindInsert, "begin", err)
	}
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		d.rollback(tx, schema.Table)
		return newError(KindInsert, "prepare", errors.Wrap(err, schema.Table))
	}
	defer stmt.Close()

	for i, row := range valid {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			d.rollback(tx, schema.Table)
			result.Failed = append(result.Failed, RowError{Row: numbers[i], Err: err})
			return newError(KindInsert, "insert rows", errors.Wrapf(err, "row %d, batch rolled back", numbers[i]))
		}
	}
	if err := tx.Commit(); err != nil {
		return newError(KindInsert, "commit", errors.Wrap(err, schema.Table))
	}
	result.Inserted = len(valid)
	return nil
}

func (d *DataLoader) insertPerRow(ctx context.Context, conn *sqlx.Conn, schema TableSchema, rows [][]string, result *LoadResult) error {
	query := schema.InsertQuery()
	level.Debug(d.Logger).Log("msg", "built insert query", "generated_query", query)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return newError(KindInsert, "insert rows", err)
		}
		if err := checkWidth(schema, row); err != nil {
			result.Failed = append(result.Failed, RowError{Row: i + 1, Err: err})
			continue
		}
		if err := d.insertRow(ctx, conn, schema.Table, query, row); err != nil {
			level.Error(d.Logger).Log("msg", "row insert failure", "table_name", schema.Table, "row", i+1, "err", err)
			result.Failed = append(result.Failed, RowError{Row: i + 1, Err: err})
			continue
		}
		result.Inserted++
	}
	return nil
}

func (d *DataLoader) insertRow(ctx context.Context, conn *sqlx.Conn, table, query string, row []string) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args(row)...); err != nil {
		d.rollback(tx, table)
		return err
	}
	return tx.Commit()
}

func (d *DataLoader) rollback(tx *sqlx.Tx, table string) {
	if err := tx.Rollback(); err != nil {
		level.Warn(d.Logger).Log("msg", "rollback failure", "table_name", table, "err", err)
	}
}

func checkWidth(schema TableSchema, row []string) error {
	if len(row) != len(schema.Columns) {
		return errors.Errorf("has %d fields, table %s has %d columns", len(row), schema.Table, len(schema.Columns))
	}
	return nil
}

func args(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
