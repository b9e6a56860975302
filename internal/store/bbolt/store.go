// Package bbolt implements store.Table on a BoltDB file.
package bbolt

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tsundokudragon/dragon-server/internal/store"
)

const itemsBucket = "items"

// Table is a store.Table backed by one BoltDB bucket. Keys are flattened
// with store.EncodeKey, so a bucket cursor walks a partition in sort key order.
type Table struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var (
	_ store.Table       = (*Table)(nil)
	_ store.BatchPutter = (*Table)(nil)
)

// Open opens a BoltDB-backed table at the provided path.
func Open(path string, logger *slog.Logger) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	t := &Table{db: db, logger: logger}
	if err := t.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Debug("bolt table opened", "path", cleanPath)
	}
	return t, nil
}

// Close closes the underlying BoltDB database.
func (t *Table) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Put persists an item. Bolt serializes update transactions, so conditions
// are checked and applied atomically.
func (t *Table) Put(ctx context.Context, item store.Item, opts ...store.PutOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := store.EncodeKey(item.Key)
	if err != nil {
		return err
	}
	payload, err := item.Attrs.Encode()
	if err != nil {
		return err
	}

	return t.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		if len(opts) > 0 {
			existing, err := loadAttrs(bucket, key)
			if err != nil {
				return err
			}
			if err := store.CheckPut(existing, opts...); err != nil {
				return err
			}
		}
		return bucket.Put(key, payload)
	})
}

// Get fetches an item by key.
func (t *Table) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}

	raw, err := store.EncodeKey(key)
	if err != nil {
		return store.Item{}, err
	}

	var attrs store.Attributes
	err = t.db.View(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		attrs, err = loadAttrs(bucket, raw)
		return err
	})
	if err != nil {
		return store.Item{}, err
	}
	if attrs == nil {
		return store.Item{}, store.ErrItemNotFound
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

	var out store.QueryOutput
	err := t.db.View(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		out, err = store.Paginate(in, scan(ctx, bucket.Cursor(), in))
		return err
	})
	if err != nil {
		return store.QueryOutput{}, err
	}
	return out, nil
}

// AtomicAdd increments a numeric field inside one update transaction.
func (t *Table) AtomicAdd(ctx context.Context, in store.AddInput) (store.AddOutput, error) {
	if err := ctx.Err(); err != nil {
		return store.AddOutput{}, err
	}

	key, err := store.EncodeKey(in.Key)
	if err != nil {
		return store.AddOutput{}, err
	}

	var out store.AddOutput
	err = t.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		existing, err := loadAttrs(bucket, key)
		if err != nil {
			return err
		}

		next, res, err := store.ApplyAdd(existing, in)
		if err != nil {
			return err
		}
		payload, err := next.Encode()
		if err != nil {
			return err
		}
		if err := bucket.Put(key, payload); err != nil {
			return err
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

	p := store.RangePrefix(pk, prefix)
	count := 0
	err := t.db.View(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		c := bucket.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// PutBatch writes many items in one update transaction.
func (t *Table) PutBatch(ctx context.Context, items []store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		for _, item := range items {
			key, err := store.EncodeKey(item.Key)
			if err != nil {
				return err
			}
			payload, err := item.Attrs.Encode()
			if err != nil {
				return err
			}
			if err := bucket.Put(key, payload); err != nil {
				return fmt.Errorf("batch put %s: %w", item.Key, err)
			}
		}
		return nil
	})
}

// Scan visits every item of the table in key order. Used by inspection tooling.
func (t *Table) Scan(ctx context.Context, fn func(store.Item) error) error {
	return t.db.View(func(tx *bbolt.Tx) error {
		bucket, err := itemBucket(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := decodeItem(k, v)
			if err != nil {
				return err
			}
			return fn(item)
		})
	})
}

func (t *Table) ensureBuckets() error {
	return t.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(itemsBucket))
		if err != nil {
			return fmt.Errorf("create items bucket: %w", err)
		}
		return nil
	})
}

// scan walks the range selected by in, starting after in.StartAfter.
func scan(ctx context.Context, c *bbolt.Cursor, in store.QueryInput) iter.Seq2[store.Item, error] {
	return func(yield func(store.Item, error) bool) {
		prefix := store.RangePrefix(in.PK, in.Prefix)

		var k, v []byte
		switch {
		case in.Descending:
			// Position on the largest key below the target.
			target := store.RangeEnd(in.PK, in.Prefix)
			if in.StartAfter != nil {
				target, _ = store.EncodeKey(*in.StartAfter)
			}
			if k, _ = c.Seek(target); k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		case in.StartAfter != nil:
			start, _ := store.EncodeKey(*in.StartAfter)
			k, v = c.Seek(start)
			if bytes.Equal(k, start) {
				k, v = c.Next()
			}
		default:
			k, v = c.Seek(prefix)
		}

		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = step(c, in.Descending) {
			if err := ctx.Err(); err != nil {
				yield(store.Item{}, err)
				return
			}
			item, err := decodeItem(k, v)
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

func step(c *bbolt.Cursor, descending bool) ([]byte, []byte) {
	if descending {
		return c.Prev()
	}
	return c.Next()
}

func itemBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(itemsBucket))
	if bucket == nil {
		return nil, fmt.Errorf("items bucket is missing")
	}
	return bucket, nil
}

// loadAttrs decodes the value at key, or returns nil when absent. Bolt
// values are only valid inside the transaction, and decoding copies them.
func loadAttrs(bucket *bbolt.Bucket, key []byte) (store.Attributes, error) {
	payload := bucket.Get(key)
	if payload == nil {
		return nil, nil
	}
	return store.DecodeAttributes(payload)
}

func decodeItem(k, v []byte) (store.Item, error) {
	key, err := store.DecodeKey(k)
	if err != nil {
		return store.Item{}, err
	}
	attrs, err := store.DecodeAttributes(v)
	if err != nil {
		return store.Item{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return store.Item{Key: key, Attrs: attrs}, nil
}
