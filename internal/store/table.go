package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Table errors returned by every backend.
var (
	// ErrItemNotFound is returned by Get when no item has the key.
	ErrItemNotFound = errors.New("item not found")
	// ErrConditionFailed is returned by a conditional Put whose condition did not hold.
	ErrConditionFailed = errors.New("condition failed")
)

// Table is a single key-value table addressed by (partition key, sort key).
//
// Implementations must keep items of one partition ordered by sort key
// (byte-wise) and must apply Put conditions and AtomicAdd atomically with
// respect to concurrent callers.
type Table interface {
	// Put upserts a full item, subject to the given conditions.
	Put(ctx context.Context, item Item, opts ...PutOption) error
	// Get returns the item stored under key, or ErrItemNotFound.
	Get(ctx context.Context, key Key) (Item, error)
	// Query returns the items of a partition whose sort key begins with a prefix.
	Query(ctx context.Context, in QueryInput) (QueryOutput, error)
	// AtomicAdd increments a numeric field exactly once per call.
	AtomicAdd(ctx context.Context, in AddInput) (AddOutput, error)
	// Count returns the number of items under a sort key prefix.
	Count(ctx context.Context, pk, prefix string) (int, error)
	// Close releases the underlying engine.
	Close() error
}

// Scanner is implemented by tables that can visit every item in key order.
type Scanner interface {
	Scan(ctx context.Context, fn func(Item) error) error
}

// Key addresses one item.
type Key struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

// String renders the key for logs.
func (k Key) String() string {
	return k.PK + "|" + k.SK
}

// Item is one row of the table.
type Item struct {
	Key
	Attrs Attributes
}

// Attributes is the JSON object stored for an item.
type Attributes map[string]json.RawMessage

// MarshalAttributes converts a struct (or map) into item attributes.
func MarshalAttributes(v any) (Attributes, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return DecodeAttributes(data)
}

// DecodeAttributes parses a stored JSON object.
func DecodeAttributes(data []byte) (Attributes, error) {
	attrs := Attributes{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return attrs, nil
}

// Encode renders the attributes as a JSON object.
func (a Attributes) Encode() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(a))
}

// Decode unmarshals the attributes into v.
func (a Attributes) Decode(v any) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Int64 reads a numeric field. ok is false when the field is absent or null.
func (a Attributes) Int64(field string) (n int64, ok bool, err error) {
	raw, present := a[field]
	if !present || string(raw) == "null" {
		return 0, false, nil
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, fmt.Errorf("field %s is not an integer: %w", field, err)
	}
	return n, true, nil
}

// Set stores v under field.
func (a Attributes) Set(field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", field, err)
	}
	a[field] = raw
	return nil
}

// PutOption adds a condition to Put.
type PutOption func(*putConditions)

type putConditions struct {
	ifAbsent     bool
	versionField string
	version      int64
	hasVersion   bool
}

// IfAbsent makes Put fail with ErrConditionFailed when the key already exists.
func IfAbsent() PutOption {
	return func(c *putConditions) {
		c.ifAbsent = true
	}
}

// IfVersion makes Put fail with ErrConditionFailed unless the stored item
// exists and its numeric field equals expected.
func IfVersion(field string, expected int64) PutOption {
	return func(c *putConditions) {
		c.versionField = field
		c.version = expected
		c.hasVersion = true
	}
}

// CheckPut evaluates Put conditions against the currently stored item.
// existing is nil when the key is absent. Backends call this inside the
// transaction that performs the write.
func CheckPut(existing Attributes, opts ...PutOption) error {
	var c putConditions
	for _, opt := range opts {
		opt(&c)
	}

	if c.ifAbsent && existing != nil {
		return ErrConditionFailed
	}
	if c.hasVersion {
		if existing == nil {
			return ErrConditionFailed
		}
		got, ok, err := existing.Int64(c.versionField)
		if err != nil {
			return err
		}
		if !ok || got != c.version {
			return ErrConditionFailed
		}
	}
	return nil
}

// QueryInput selects a range of one partition.
type QueryInput struct {
	PK     string
	Prefix string
	// Limit bounds the number of returned items. Zero means no limit.
	Limit int
	// Descending iterates from the largest sort key down.
	Descending bool
	// StartAfter resumes after this key (exclusive).
	StartAfter *Key
	// Filter drops items during iteration. Dropped items do not count toward Limit.
	Filter func(Item) bool
}

// Validate checks the query is well formed.
func (in QueryInput) Validate() error {
	if in.PK == "" {
		return errors.New("query requires a partition key")
	}
	if in.Limit < 0 {
		return errors.New("query limit must not be negative")
	}
	if in.StartAfter != nil {
		if in.StartAfter.PK != in.PK || !strings.HasPrefix(in.StartAfter.SK, in.Prefix) {
			return errors.New("start key is outside the queried range")
		}
	}
	return nil
}

// QueryOutput is one page of a query.
type QueryOutput struct {
	Items []Item
	// LastKey is set when more matching items remain after Items.
	LastKey *Key
}

// Paginate consumes an ordered range, applying the filter and limit of in.
// Backends supply seq positioned after in.StartAfter.
func Paginate(in QueryInput, seq iter.Seq2[Item, error]) (QueryOutput, error) {
	var out QueryOutput
	for item, err := range seq {
		if err != nil {
			return QueryOutput{}, err
		}
		if in.Filter != nil && !in.Filter(item) {
			continue
		}
		if in.Limit > 0 && len(out.Items) == in.Limit {
			last := out.Items[len(out.Items)-1].Key
			out.LastKey = &last
			break
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// AddInput describes an atomic increment.
type AddInput struct {
	Key
	Field string
	Delta int64
	// Initial is the field value assumed when the item or field is absent.
	Initial int64
	// Derive returns extra fields to write in the same atomic step,
	// computed from the new value.
	Derive func(newValue int64) map[string]any
}

// AddOutput reports the value before and after an increment.
type AddOutput struct {
	Previous int64
	Value    int64
	Created  bool
}

// ApplyAdd computes the attributes resulting from an increment.
// existing is nil when the key is absent. Backends call this inside the
// transaction that performs the write.
func ApplyAdd(existing Attributes, in AddInput) (Attributes, AddOutput, error) {
	if in.Field == "" {
		return nil, AddOutput{}, errors.New("atomic add requires a field")
	}

	out := AddOutput{Previous: in.Initial, Created: existing == nil}
	next := Attributes{}
	for k, v := range existing {
		next[k] = v
	}

	cur, ok, err := next.Int64(in.Field)
	if err != nil {
		return nil, AddOutput{}, err
	}
	if ok {
		out.Previous = cur
	}
	out.Value = out.Previous + in.Delta

	if err := next.Set(in.Field, out.Value); err != nil {
		return nil, AddOutput{}, err
	}
	if in.Derive != nil {
		for k, v := range in.Derive(out.Value) {
			if err := next.Set(k, v); err != nil {
				return nil, AddOutput{}, err
			}
		}
	}
	return next, out, nil
}
