// Package sqlite implements store.Table on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tsundokudragon/dragon-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const upsertSQL = `INSERT INTO items (pk, sk, attrs) VALUES (?, ?, ?)
ON CONFLICT (pk, sk) DO UPDATE SET attrs = excluded.attrs`

// Table is a store.Table backed by one SQLite table.
type Table struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ store.Table       = (*Table)(nil)
	_ store.BatchPutter = (*Table)(nil)
)

// Open creates a new SQLite table at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes every read-modify-write transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	// Run schema migration.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Debug("sqlite table opened", "path", path)
	}

	return &Table{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (t *Table) Close() error {
	return t.db.Close()
}

// Put upserts an item.
func (t *Table) Put(ctx context.Context, item store.Item, opts ...store.PutOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(item.Key); err != nil {
		return err
	}

	data, err := item.Attrs.Encode()
	if err != nil {
		return err
	}

	if len(opts) == 0 {
		if _, err := t.db.ExecContext(ctx, upsertSQL, item.PK, item.SK, string(data)); err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}
		return nil
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadAttrs(ctx, tx, item.Key)
		if err != nil {
			return err
		}
		if err := store.CheckPut(existing, opts...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, item.PK, item.SK, string(data)); err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}
		return nil
	})
}

// Get retrieves an item by key.
func (t *Table) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}

	var raw string
	err := t.db.QueryRowContext(ctx,
		`SELECT attrs FROM items WHERE pk = ? AND sk = ?`, key.PK, key.SK,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Item{}, store.ErrItemNotFound
	}
	if err != nil {
		return store.Item{}, fmt.Errorf("get item: %w", err)
	}

	attrs, err := store.DecodeAttributes([]byte(raw))
	if err != nil {
		return store.Item{}, err
	}
	return store.Item{Key: key, Attrs: attrs}, nil
}

// Query returns one page of a prefix range.
func (t *Table) Query(ctx context.Context, in store.QueryInput) (store.QueryOutput, error) {
	if err := ctx.Err(); err != nil {
		return store.QueryOutput{}, err
	}
	if err := in.Validate(); err != nil {
		return store.QueryOutput{}, err
	}

	query, args := rangeQuery("pk, sk, attrs", in)
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return store.QueryOutput{}, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	out, err := store.Paginate(in, scanRows(rows))
	if err != nil {
		return store.QueryOutput{}, err
	}
	return out, nil
}

// AtomicAdd increments a numeric field inside one transaction.
func (t *Table) AtomicAdd(ctx context.Context, in store.AddInput) (store.AddOutput, error) {
	if err := ctx.Err(); err != nil {
		return store.AddOutput{}, err
	}
	if err := validKey(in.Key); err != nil {
		return store.AddOutput{}, err
	}

	var out store.AddOutput
	err := t.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadAttrs(ctx, tx, in.Key)
		if err != nil {
			return err
		}

		next, res, err := store.ApplyAdd(existing, in)
		if err != nil {
			return err
		}
		data, err := next.Encode()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, in.PK, in.SK, string(data)); err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return store.AddOutput{}, err
	}
	return out, nil
}

// Count returns the number of items under a prefix.
func (t *Table) Count(ctx context.Context, pk, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query, args := rangeQuery("COUNT(*)", store.QueryInput{PK: pk, Prefix: prefix})
	var n int
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// PutBatch writes many items in one transaction.
func (t *Table) PutBatch(ctx context.Context, items []store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, item := range items {
			if err := validKey(item.Key); err != nil {
				return err
			}
			data, err := item.Attrs.Encode()
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, item.PK, item.SK, string(data)); err != nil {
				return fmt.Errorf("batch upsert %s: %w", item.Key, err)
			}
		}
		return nil
	})
}

// Scan visits every item of the table in key order. Used by inspection tooling.
func (t *Table) Scan(ctx context.Context, fn func(store.Item) error) error {
	rows, err := t.db.QueryContext(ctx, `SELECT pk, sk, attrs FROM items ORDER BY pk, sk`)
	if err != nil {
		return fmt.Errorf("scan items: %w", err)
	}
	defer rows.Close()

	for item, err := range scanRows(rows) {
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// rangeQuery builds the SELECT for a prefix range. substr counts characters,
// so the prefix length is passed in runes. The sk >= prefix bound lets
// SQLite use the primary key index.
func rangeQuery(columns string, in store.QueryInput) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM items WHERE pk = ? AND sk >= ? AND substr(sk, 1, ?) = ?")
	args := []any{in.PK, in.Prefix, utf8.RuneCountInString(in.Prefix), in.Prefix}

	if in.StartAfter != nil {
		if in.Descending {
			b.WriteString(" AND sk < ?")
		} else {
			b.WriteString(" AND sk > ?")
		}
		args = append(args, in.StartAfter.SK)
	}

	if columns != "COUNT(*)" {
		if in.Descending {
			b.WriteString(" ORDER BY sk DESC")
		} else {
			b.WriteString(" ORDER BY sk ASC")
		}
	}
	return b.String(), args
}

func scanRows(rows *sql.Rows) iter.Seq2[store.Item, error] {
	return func(yield func(store.Item, error) bool) {
		for rows.Next() {
			var pk, sk, raw string
			if err := rows.Scan(&pk, &sk, &raw); err != nil {
				yield(store.Item{}, fmt.Errorf("scan item: %w", err))
				return
			}
			attrs, err := store.DecodeAttributes([]byte(raw))
			item := store.Item{Key: store.Key{PK: pk, SK: sk}, Attrs: attrs}
			if !yield(item, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(store.Item{}, fmt.Errorf("iterate items: %w", err))
		}
	}
}

func loadAttrs(ctx context.Context, tx *sql.Tx, key store.Key) (store.Attributes, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT attrs FROM items WHERE pk = ? AND sk = ?`, key.PK, key.SK,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	return store.DecodeAttributes([]byte(raw))
}

func validKey(k store.Key) error {
	if k.PK == "" || k.SK == "" {
		return fmt.Errorf("key %q requires both partition and sort key", k)
	}
	return nil
}
