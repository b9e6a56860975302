package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// ErrAlreadyExists is returned by Create when the key is taken.
var ErrAlreadyExists = errors.New("entity already exists")

// Entity provides typed access to one kind of item. Values are stored as
// their JSON encoding.
type Entity[T any] struct {
	store *Store
	kind  KeyKind
}

// NewEntity creates an Entity for items of the given key kind.
func NewEntity[T any](s *Store, kind KeyKind) *Entity[T] {
	return &Entity[T]{
		store: s,
		kind:  kind,
	}
}

// Create stores entity under key. Returns ErrAlreadyExists if the key is taken.
func (e *Entity[T]) Create(ctx context.Context, key Key, entity *T) error {
	err := e.Put(ctx, key, entity, IfAbsent())
	if errors.Is(err, ErrConditionFailed) {
		return ErrAlreadyExists
	}
	return err
}

// Put stores entity under key, subject to opts.
func (e *Entity[T]) Put(ctx context.Context, key Key, entity *T, opts ...PutOption) error {
	attrs, err := MarshalAttributes(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", e.kind, err)
	}
	return e.store.table.Put(ctx, Item{Key: key, Attrs: attrs}, opts...)
}

// Get retrieves the entity stored under key. Returns ErrItemNotFound when absent.
func (e *Entity[T]) Get(ctx context.Context, key Key) (*T, error) {
	item, err := e.store.table.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.decode(item)
}

// List iterates over every entity of this kind under a prefix, in sort key
// order, fetching pages of DefaultPageLimit.
func (e *Entity[T]) List(ctx context.Context, pk, prefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		in := QueryInput{
			PK:     pk,
			Prefix: prefix,
			Limit:  DefaultPageLimit,
			Filter: e.owns,
		}
		for {
			out, err := e.store.table.Query(ctx, in)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range out.Items {
				v, err := e.decode(item)
				if !yield(v, err) || err != nil {
					return
				}
			}
			if out.LastKey == nil {
				return
			}
			in.StartAfter = out.LastKey
		}
	}
}

// All collects List into a slice.
func (e *Entity[T]) All(ctx context.Context, pk, prefix string) ([]*T, error) {
	var out []*T
	for v, err := range e.List(ctx, pk, prefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// pageQuery describes one page request.
type pageQuery[T any] struct {
	pk         string
	prefix     string
	params     PaginationParams
	descending bool
	// keep optionally narrows the listing further. Rejected entities do not
	// count toward the page limit.
	keep func(*T) bool
}

// page returns one page of entities and the cursor for the next one.
func (e *Entity[T]) page(ctx context.Context, q pageQuery[T]) (*PaginatedResult[*T], error) {
	q.params.Validate()

	startAfter, err := e.store.cursors.Decode(q.params.Cursor, q.pk, q.prefix)
	if err != nil {
		return nil, err
	}

	filter := e.owns
	if q.keep != nil {
		filter = func(item Item) bool {
			if !e.owns(item) {
				return false
			}
			v, err := e.decode(item)
			// Undecodable items are kept so decoding below reports them.
			return err != nil || q.keep(v)
		}
	}

	out, err := e.store.table.Query(ctx, QueryInput{
		PK:         q.pk,
		Prefix:     q.prefix,
		Limit:      q.params.Limit,
		Descending: q.descending,
		StartAfter: startAfter,
		Filter:     filter,
	})
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[*T]{
		Items:   make([]*T, 0, len(out.Items)),
		HasMore: out.LastKey != nil,
	}
	for _, item := range out.Items {
		v, err := e.decode(item)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, v)
	}
	if out.LastKey != nil {
		result.NextCursor = e.store.cursors.Encode(*out.LastKey)
	}
	return result, nil
}

// owns reports whether an item is of this entity's kind. Book listings
// share the BOOK# prefix with battle logs and rely on this to skip them.
func (e *Entity[T]) owns(item Item) bool {
	return KindOf(item.SK) == e.kind
}

func (e *Entity[T]) decode(item Item) (*T, error) {
	var v T
	if err := item.Attrs.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", e.kind, item.Key, err)
	}
	return &v, nil
}
