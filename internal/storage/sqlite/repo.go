// Package sqlite publishes the merged table into an embedded SQLite file,
// the default target: the .db artifact sits next to the CSV exports and
// needs no server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"baac/internal/storage"
)

// insertChunk bounds the number of rows per multi-values INSERT so the
// statement stays under SQLite's bind-variable limit.
const insertChunk = 400

type Repo struct {
	db *sql.DB
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
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// Replace drops and recreates the table, then inserts all rows, in one
// transaction. SQLite DDL is transactional, so a failed load rolls back to
// the previous table content.
func (r *Repo) Replace(ctx context.Context, table string, cols []storage.Column, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident(table)); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL(table, cols)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	var total int64
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		n, err := insertChunkRows(ctx, tx, table, cols, rows[start:end])
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func insertChunkRows(ctx context.Context, tx *sql.Tx, table string, cols []storage.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	ph := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ph)
		for ci := range cols {
			if ci < len(row) {
				args = append(args, row[ci])
			} else {
				args = append(args, nil)
			}
		}
	}

	res, err := tx.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func createSQL(table string, cols []storage.Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(ident(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c.Name))
		b.WriteString(" ")
		b.WriteString(sqlType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

func sqlType(t storage.ColType) string {
	switch t {
	case storage.TypeInt:
		return "INTEGER"
	case storage.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
