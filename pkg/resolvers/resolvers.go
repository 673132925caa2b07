// Package resolvers holds the resolution strategies shared by derived-state
// kinds. Each strategy is a pure function over events already sorted or
// sortable by (block_number, log_index).
package resolvers

import (
	"sort"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Keyed is a value tagged with its natural key and the event that produced it.
type Keyed[T any] struct {
	Key   string
	Event *events.Event
	Value T
}

// LatestWins partitions items by key and keeps, per key, the item whose event
// is highest in chain order. Ingestion order never matters; keys are returned
// in the order they were first seen.
func LatestWins[T any](items []*Keyed[T]) *orderedmap.OrderedMap[string, *Keyed[T]] {
	om := orderedmap.New[string, *Keyed[T]]()
	for _, item := range items {
		existing, found := om.Get(item.Key)
		if !found || existing.Event.Before(item.Event) {
			om.Set(item.Key, item)
		}
	}
	return om
}

// FirstSeen is the mirror of LatestWins: it keeps the earliest item per key.
func FirstSeen[T any](items []*Keyed[T]) *orderedmap.OrderedMap[string, *Keyed[T]] {
	om := orderedmap.New[string, *Keyed[T]]()
	for _, item := range items {
		existing, found := om.Get(item.Key)
		if !found || item.Event.Before(existing.Event) {
			om.Set(item.Key, item)
		}
	}
	return om
}

// Values flattens a resolved ordered map into a slice, preserving key order.
func Values[T any](om *orderedmap.OrderedMap[string, *Keyed[T]]) []*Keyed[T] {
	out := make([]*Keyed[T], 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Balance is the net result of RunningBalance for one key.
type Balance struct {
	Key        string
	Amount     decimal.Decimal
	FirstEvent *events.Event
	LastEvent  *events.Event
	Deltas     int
}

// RunningBalance sums signed deltas per key in chain order and keeps only keys
// whose net amount is strictly positive. Zero and negative balances are
// dropped rather than reported as zero.
func RunningBalance(deltas []*Keyed[decimal.Decimal]) *orderedmap.OrderedMap[string, *Balance] {
	sorted := make([]*Keyed[decimal.Decimal], len(deltas))
	copy(sorted, deltas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Event.Before(sorted[j].Event)
	})

	all := orderedmap.New[string, *Balance]()
	for _, d := range sorted {
		b, found := all.Get(d.Key)
		if !found {
			b = &Balance{Key: d.Key, Amount: decimal.Zero, FirstEvent: d.Event}
			all.Set(d.Key, b)
		}
		b.Amount = b.Amount.Add(d.Value)
		b.LastEvent = d.Event
		b.Deltas++
	}

	positive := orderedmap.New[string, *Balance]()
	for pair := all.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Amount.IsPositive() {
			positive.Set(pair.Key, pair.Value)
		}
	}
	return positive
}

// Pair is one position of two parallel arrays. A side is nil when its array
// was shorter than the other.
type Pair[A any, B any] struct {
	Index int
	Left  *A
	Right *B
}

// UnpackParallel zips two parallel arrays into one pair per position. Arrays
// of unequal length are padded with nil on the short side so that the
// mismatch surfaces as a missing field downstream instead of silently
// dropping entries.
func UnpackParallel[A any, B any](left []A, right []B) []*Pair[A, B] {
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	out := make([]*Pair[A, B], 0, n)
	for i := 0; i < n; i++ {
		p := &Pair[A, B]{Index: i}
		if i < len(left) {
			p.Left = &left[i]
		}
		if i < len(right) {
			p.Right = &right[i]
		}
		out = append(out, p)
	}
	return out
}
