// Package mssql publishes the merged table into SQL Server using the
// driver's bulk-copy support.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"baac/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

// Replace drops and recreates the table, then bulk-copies all rows, in one
// transaction. SQL Server DDL participates in transactions, so a failed load
// rolls back to the previous table content.
func (r *Repo) Replace(ctx context.Context, table string, cols []storage.Column, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	drop := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s",
		strings.ReplaceAll(table, "'", "''"), ident(table))
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL(table, cols)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, names...))
	if err != nil {
		return 0, fmt.Errorf("bulk prepare %s: %w", table, err)
	}

	for _, row := range rows {
		vals := make([]any, len(cols))
		copy(vals, row)
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("bulk row %s: %w", table, err)
		}
	}

	res, err := stmt.ExecContext(ctx)
	if err != nil {
		stmt.Close()
		return 0, fmt.Errorf("bulk flush %s: %w", table, err)
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
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
		return "BIGINT"
	case storage.TypeFloat:
		return "FLOAT"
	default:
		return "NVARCHAR(400)"
	}
}

func ident(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
