// Package sqlite implements storage.Repository for SQLite.
//
// SQLite has no schemas, so the configured schema is flattened into a table
// name prefix ("ror" + "core_data" -> "ror_core_data"). That keeps the DDL
// script portable between local sqlite runs and the Postgres target as long
// as the script follows the same convention.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"rorimport/internal/storage"
)

type Repo struct {
	db     *sql.DB
	schema string
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, schema: cfg.Schema}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return insertRows(ctx, r.db, r.schema, table, columns, rows)
}

func (r *Repo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &repoTx{tx: tx, schema: r.schema}, nil
}

func (r *Repo) ExecScript(ctx context.Context, script string) error {
	_, err := r.db.ExecContext(ctx, script)
	return err
}

func (r *Repo) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + qualify(r.schema, table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type repoTx struct {
	tx     *sql.Tx
	schema string
}

func (t *repoTx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return insertRows(ctx, t.tx, t.schema, table, columns, rows)
}

func (t *repoTx) Commit(ctx context.Context) error { return t.tx.Commit() }

func (t *repoTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRows(ctx context.Context, ex execer, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, args := buildInsertSQL(qualify(schema, table), columns, rows)
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// buildInsertSQL constructs a single multi-row INSERT with ? placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

func qualify(schema, table string) string {
	if schema == "" {
		return sqlIdent(table)
	}
	return sqlIdent(schema + "_" + table)
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
