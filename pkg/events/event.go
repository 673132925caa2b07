package events

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Event is one immutable row of an event table. Payload holds the full row as
// JSON so that each derived-state kind can decode the columns it cares about.
type Event struct {
	Table           string `gorm:"-"`
	OperatorId      string
	BlockNumber     uint64
	LogIndex        uint64
	BlockTimestamp  int64
	TransactionHash string
	Payload         string
}

func (e *Event) Timestamp() time.Time {
	return time.Unix(e.BlockTimestamp, 0).UTC()
}

// Before reports whether e precedes other in chain order. (block_number,
// log_index) is the only total order; timestamps never break ties.
func (e *Event) Before(other *Event) bool {
	if e.BlockNumber != other.BlockNumber {
		return e.BlockNumber < other.BlockNumber
	}
	return e.LogIndex < other.LogIndex
}

// SortEvents orders events by (block_number, log_index) ascending, in place.
func SortEvents(evs []*Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Before(evs[j])
	})
}

// DecodePayload decodes the event's JSON payload into T, keeping numbers as
// json.Number so that 256-bit values survive.
func DecodePayload[T any](e *Event) (*T, error) {
	var out T
	decoder := json.NewDecoder(strings.NewReader(e.Payload))
	decoder.UseNumber()
	if err := decoder.Decode(&out); err != nil {
		return nil, xerrors.Errorf("failed to decode payload for %s at block %d log %d: %w", e.Table, e.BlockNumber, e.LogIndex, err)
	}
	return &out, nil
}

// DecodedEvent pairs an event with its decoded payload.
type DecodedEvent[T any] struct {
	Event   *Event
	Payload *T
}

// DecodeAll decodes every event in evs, preserving order.
func DecodeAll[T any](evs []*Event) ([]*DecodedEvent[T], error) {
	out := make([]*DecodedEvent[T], 0, len(evs))
	for _, e := range evs {
		p, err := DecodePayload[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, &DecodedEvent[T]{Event: e, Payload: p})
	}
	return out, nil
}

// EventSet holds the fetched events for one operator, keyed by table, each
// slice sorted in chain order.
type EventSet struct {
	byTable map[string][]*Event
}

func NewEventSet() *EventSet {
	return &EventSet{byTable: make(map[string][]*Event)}
}

func (s *EventSet) Add(table string, evs []*Event) {
	for _, e := range evs {
		e.Table = table
	}
	s.byTable[table] = append(s.byTable[table], evs...)
	SortEvents(s.byTable[table])
}

func (s *EventSet) Get(table string) []*Event {
	return s.byTable[table]
}

// Count returns the total number of events across all tables.
func (s *EventSet) Count() int {
	total := 0
	for _, evs := range s.byTable {
		total += len(evs)
	}
	return total
}

// MaxBlock returns the highest block number in the set, or 0 when empty.
func (s *EventSet) MaxBlock() uint64 {
	var max uint64
	for _, evs := range s.byTable {
		if len(evs) > 0 && evs[len(evs)-1].BlockNumber > max {
			max = evs[len(evs)-1].BlockNumber
		}
	}
	return max
}
