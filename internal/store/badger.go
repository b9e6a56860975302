package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgraph-io/badger/v4"
)

// defaultConflictRetries bounds how often a transaction that lost an
// optimistic-concurrency race is replayed.
const defaultConflictRetries = 100

// BadgerTable is the Badger-backed Table.
type BadgerTable struct {
	db         *badger.DB
	logger     *slog.Logger
	maxRetries uint
}

// OpenBadger opens (or creates) a Badger table at path.
// An empty path opens an in-memory table.
func OpenBadger(path string, logger *slog.Logger) (*BadgerTable, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
		opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Debug("badger table opened", "path", path)
	}

	return &BadgerTable{
		db:         db,
		logger:     logger,
		maxRetries: defaultConflictRetries,
	}, nil
}

// Close gracefully closes the database.
func (t *BadgerTable) Close() error {
	if t.logger != nil {
		t.logger.Debug("closing badger table")
	}
	return t.db.Close()
}

// Put upserts an item.
func (t *BadgerTable) Put(ctx context.Context, item Item, opts ...PutOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := EncodeKey(item.Key)
	if err != nil {
		return err
	}
	data, err := item.Attrs.Encode()
	if err != nil {
		return err
	}

	return t.update(ctx, func(txn *badger.Txn) error {
		if len(opts) > 0 {
			existing, err := badgerAttrs(txn, key)
			if err != nil {
				return err
			}
			if err := CheckPut(existing, opts...); err != nil {
				return err
			}
		}
		return txn.Set(key, data)
	})
}

// Get retrieves an item by key.
func (t *BadgerTable) Get(ctx context.Context, key Key) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	raw, err := EncodeKey(key)
	if err != nil {
		return Item{}, err
	}

	var attrs Attributes
	err = t.db.View(func(txn *badger.Txn) error {
		attrs, err = badgerAttrs(txn, raw)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	if attrs == nil {
		return Item{}, ErrItemNotFound
	}
	return Item{Key: key, Attrs: attrs}, nil
}

// Query returns one page of a prefix range.
func (t *BadgerTable) Query(ctx context.Context, in QueryInput) (QueryOutput, error) {
	if err := ctx.Err(); err != nil {
		return QueryOutput{}, err
	}
	if err := in.Validate(); err != nil {
		return QueryOutput{}, err
	}

	var out QueryOutput
	err := t.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = Paginate(in, t.scan(ctx, txn, in))
		return err
	})
	if err != nil {
		return QueryOutput{}, err
	}
	return out, nil
}

func (t *BadgerTable) scan(ctx context.Context, txn *badger.Txn, in QueryInput) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		prefix := RangePrefix(in.PK, in.Prefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = in.Descending
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the largest key <= seek.
		seek := prefix
		if in.Descending {
			seek = RangeEnd(in.PK, in.Prefix)
		}
		var skip []byte
		if in.StartAfter != nil {
			seek = flatKey(*in.StartAfter)
			skip = seek
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				yield(Item{}, err)
				return
			}

			bi := it.Item()
			if skip != nil && bytes.Equal(bi.Key(), skip) {
				continue
			}

			item, err := badgerItem(bi)
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// AtomicAdd increments a numeric field inside one transaction. Transactions
// that lose a race are replayed, so the delta is applied exactly once.
func (t *BadgerTable) AtomicAdd(ctx context.Context, in AddInput) (AddOutput, error) {
	if err := ctx.Err(); err != nil {
		return AddOutput{}, err
	}

	key, err := EncodeKey(in.Key)
	if err != nil {
		return AddOutput{}, err
	}

	var out AddOutput
	err = t.update(ctx, func(txn *badger.Txn) error {
		existing, err := badgerAttrs(txn, key)
		if err != nil {
			return err
		}

		next, res, err := ApplyAdd(existing, in)
		if err != nil {
			return err
		}
		data, err := next.Encode()
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return AddOutput{}, err
	}
	return out, nil
}

// Count returns the number of items under a prefix without loading values.
func (t *BadgerTable) Count(ctx context.Context, pk, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p := RangePrefix(pk, prefix)
	count := 0
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// PutBatch writes many items with a WriteBatch. Conditions are not supported.
func (t *BadgerTable) PutBatch(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := t.db.NewWriteBatch()
	defer batch.Cancel()

	for _, item := range items {
		key, err := EncodeKey(item.Key)
		if err != nil {
			return err
		}
		data, err := item.Attrs.Encode()
		if err != nil {
			return err
		}
		if err := batch.Set(key, data); err != nil {
			return fmt.Errorf("batch set %s: %w", item.Key, err)
		}
	}

	if err := batch.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}
	return nil
}

// Scan visits every item of the table in key order. Used by inspection tooling.
func (t *BadgerTable) Scan(ctx context.Context, fn func(Item) error) error {
	return t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := badgerItem(it.Item())
			if err != nil {
				return err
			}
			if err := fn(item); err != nil {
				return err
			}
		}
		return nil
	})
}

// update runs fn in a read-write transaction, replaying it on conflicts.
func (t *BadgerTable) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Millisecond
	policy.MaxInterval = 20 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := t.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			return struct{}{}, err
		}
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(t.maxRetries))
	return err
}

// badgerAttrs loads the attributes at key, or nil when absent.
func badgerAttrs(txn *badger.Txn, key []byte) (Attributes, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var attrs Attributes
	err = item.Value(func(val []byte) error {
		attrs, err = DecodeAttributes(val)
		return err
	})
	return attrs, err
}

func badgerItem(bi *badger.Item) (Item, error) {
	key, err := DecodeKey(bi.Key())
	if err != nil {
		return Item{}, err
	}

	var attrs Attributes
	err = bi.Value(func(val []byte) error {
		attrs, err = DecodeAttributes(val)
		return err
	})
	if err != nil {
		return Item{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return Item{Key: key, Attrs: attrs}, nil
}
