package store

import (
	"context"
	"errors"
)

// ErrScanUnsupported is returned by Inspect for tables without Scan.
var ErrScanUnsupported = errors.New("table does not support scanning")

// PartitionStats counts the items of one partition by kind.
type PartitionStats struct {
	PK     string
	Counts map[KeyKind]int
	Total  int
}

// Inspect walks every item of t and tallies them per partition and sort key
// kind, in key order. When visit is non-nil it also sees every item.
func Inspect(ctx context.Context, t Table, visit func(Item) error) ([]PartitionStats, error) {
	scanner, ok := t.(Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}

	var stats []PartitionStats
	err := scanner.Scan(ctx, func(item Item) error {
		if len(stats) == 0 || stats[len(stats)-1].PK != item.PK {
			stats = append(stats, PartitionStats{PK: item.PK, Counts: map[KeyKind]int{}})
		}
		cur := &stats[len(stats)-1]
		cur.Counts[KindOf(item.SK)]++
		cur.Total++

		if visit != nil {
			return visit(item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
