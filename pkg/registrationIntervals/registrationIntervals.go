package registrationIntervals

import (
	"sort"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/shopspring/decimal"
)

const secondsPerDay = 86400

// StatusChange is one REGISTERED/UNREGISTERED event for an (operator, avs) pair.
type StatusChange struct {
	Status      string
	At          time.Time
	BlockNumber uint64
	LogIndex    uint64
}

func (s *StatusChange) before(other *StatusChange) bool {
	if s.BlockNumber != other.BlockNumber {
		return s.BlockNumber < other.BlockNumber
	}
	return s.LogIndex < other.LogIndex
}

// Interval is a half-open [Start, End) span spent in REGISTERED status.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i *Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// BuildIntervals opens an interval at every REGISTERED change and closes it at
// the next status change of either kind, or at now for the last one. Changes
// are put in chain order first. An end earlier than its start is clamped.
func BuildIntervals(changes []*StatusChange, now time.Time) []*Interval {
	sorted := make([]*StatusChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].before(sorted[j])
	})

	intervals := make([]*Interval, 0)
	for i, c := range sorted {
		if c.Status != events.RegistrationStatus_Registered {
			continue
		}
		end := now
		if i+1 < len(sorted) {
			end = sorted[i+1].At
		}
		if end.Before(c.At) {
			end = c.At
		}
		intervals = append(intervals, &Interval{Start: c.At, End: end})
	}
	return intervals
}

// MergeIntervals sorts by start and collapses overlapping or touching spans
// into maximal islands. The running maximum of End decides membership, so a
// long interval swallows any number of shorter ones that start inside it.
func MergeIntervals(intervals []*Interval) []*Interval {
	if len(intervals) == 0 {
		return []*Interval{}
	}
	sorted := make([]*Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]*Interval, 0, len(sorted))
	current := &Interval{Start: sorted[0].Start, End: sorted[0].End}
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = &Interval{Start: next.Start, End: next.End}
	}
	merged = append(merged, current)
	return merged
}

// Days converts a duration to fractional days.
func Days(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(secondsPerDay)).Round(6)
}

// Summary is the registration accounting for one (operator, avs) pair.
type Summary struct {
	CurrentStatus           string
	StatusChangedAt         time.Time
	StatusChangedBlock      uint64
	FirstRegisteredAt       *time.Time
	LastRegisteredAt        *time.Time
	LastUnregisteredAt      *time.Time
	TotalRegistrationCycles uint64
	TotalDaysRegistered     decimal.Decimal
	CurrentPeriodDays       decimal.Decimal
}

func (s *Summary) IsRegistered() bool {
	return s.CurrentStatus == events.RegistrationStatus_Registered
}

// Summarize returns nil when there are no changes.
func Summarize(changes []*StatusChange, now time.Time) *Summary {
	if len(changes) == 0 {
		return nil
	}
	sorted := make([]*StatusChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].before(sorted[j])
	})

	last := sorted[len(sorted)-1]
	summary := &Summary{
		CurrentStatus:       last.Status,
		StatusChangedAt:     last.At,
		StatusChangedBlock:  last.BlockNumber,
		TotalDaysRegistered: decimal.Zero,
		CurrentPeriodDays:   decimal.Zero,
	}

	for _, c := range sorted {
		at := c.At
		switch c.Status {
		case events.RegistrationStatus_Registered:
			summary.TotalRegistrationCycles++
			if summary.FirstRegisteredAt == nil || at.Before(*summary.FirstRegisteredAt) {
				summary.FirstRegisteredAt = &at
			}
			if summary.LastRegisteredAt == nil || at.After(*summary.LastRegisteredAt) {
				summary.LastRegisteredAt = &at
			}
		case events.RegistrationStatus_Unregistered:
			if summary.LastUnregisteredAt == nil || at.After(*summary.LastUnregisteredAt) {
				summary.LastUnregisteredAt = &at
			}
		}
	}

	islands := MergeIntervals(BuildIntervals(sorted, now))
	var total time.Duration
	for _, island := range islands {
		total += island.Duration()
	}
	summary.TotalDaysRegistered = Days(total)

	if summary.IsRegistered() && len(islands) > 0 {
		summary.CurrentPeriodDays = Days(islands[len(islands)-1].Duration())
	}
	return summary
}
