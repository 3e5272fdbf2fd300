// Package postgres publishes the merged table into PostgreSQL using pgx
// COPY for the bulk load.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"baac/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

// Replace drops and recreates the table, then COPYs all rows, in one
// transaction. Postgres DDL is transactional, so a failed load leaves the
// previous table intact.
func (r *Repo) Replace(ctx context.Context, table string, cols []storage.Column, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident(table)); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, createSQL(table, cols)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, names, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
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
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
