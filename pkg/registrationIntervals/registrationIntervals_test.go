package registrationIntervals

import (
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/stretchr/testify/assert"
)

var genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return genesis.Add(time.Duration(n) * 24 * time.Hour)
}

func change(status string, at time.Time, block uint64) *StatusChange {
	return &StatusChange{Status: status, At: at, BlockNumber: block}
}

func Test_MergeIntervals(t *testing.T) {
	t.Run("Should keep disjoint intervals apart", func(t *testing.T) {
		merged := MergeIntervals([]*Interval{
			{Start: day(5), End: day(6)},
			{Start: day(0), End: day(2)},
		})
		assert.Len(t, merged, 2)
		assert.Equal(t, day(0), merged[0].Start)
		assert.Equal(t, day(6), merged[1].End)
	})
	t.Run("Should merge overlapping and touching intervals", func(t *testing.T) {
		merged := MergeIntervals([]*Interval{
			{Start: day(0), End: day(3)},
			{Start: day(1), End: day(2)},
			{Start: day(3), End: day(4)},
		})
		assert.Len(t, merged, 1)
		assert.Equal(t, day(0), merged[0].Start)
		assert.Equal(t, day(4), merged[0].End)
	})
	t.Run("Should use the running maximum end", func(t *testing.T) {
		merged := MergeIntervals([]*Interval{
			{Start: day(0), End: day(10)},
			{Start: day(2), End: day(3)},
			{Start: day(5), End: day(6)},
		})
		assert.Len(t, merged, 1)
		assert.Equal(t, day(10), merged[0].End)
	})
	t.Run("Should return an empty slice for no intervals", func(t *testing.T) {
		assert.Empty(t, MergeIntervals(nil))
	})
}

func Test_Summarize(t *testing.T) {
	t.Run("Should sum gapped registrations without counting the gap", func(t *testing.T) {
		s := Summarize([]*StatusChange{
			change(events.RegistrationStatus_Registered, day(0), 1),
			change(events.RegistrationStatus_Unregistered, day(2), 2),
			change(events.RegistrationStatus_Registered, day(5), 3),
			change(events.RegistrationStatus_Unregistered, day(6), 4),
		}, day(30))

		assert.Equal(t, "3", s.TotalDaysRegistered.String())
		assert.Equal(t, events.RegistrationStatus_Unregistered, s.CurrentStatus)
		assert.True(t, s.CurrentPeriodDays.IsZero())
		assert.Equal(t, uint64(2), s.TotalRegistrationCycles)
		assert.Equal(t, day(0), *s.FirstRegisteredAt)
		assert.Equal(t, day(5), *s.LastRegisteredAt)
		assert.Equal(t, day(6), *s.LastUnregisteredAt)
	})
	t.Run("Should not double count duplicate registrations", func(t *testing.T) {
		s := Summarize([]*StatusChange{
			change(events.RegistrationStatus_Registered, day(0), 1),
			change(events.RegistrationStatus_Registered, day(1), 2),
			change(events.RegistrationStatus_Unregistered, day(4), 3),
		}, day(30))
		assert.Equal(t, "4", s.TotalDaysRegistered.String())
	})
	t.Run("Should measure the open period up to now", func(t *testing.T) {
		s := Summarize([]*StatusChange{
			change(events.RegistrationStatus_Registered, day(0), 1),
			change(events.RegistrationStatus_Unregistered, day(1), 2),
			change(events.RegistrationStatus_Registered, day(8), 3),
		}, day(10))
		assert.True(t, s.IsRegistered())
		assert.Equal(t, "3", s.TotalDaysRegistered.String())
		assert.Equal(t, "2", s.CurrentPeriodDays.String())
		assert.Equal(t, uint64(3), s.StatusChangedBlock)
	})
	t.Run("Should order by block rather than slice position", func(t *testing.T) {
		s := Summarize([]*StatusChange{
			change(events.RegistrationStatus_Unregistered, day(2), 2),
			change(events.RegistrationStatus_Registered, day(0), 1),
		}, day(30))
		assert.Equal(t, events.RegistrationStatus_Unregistered, s.CurrentStatus)
		assert.Equal(t, "2", s.TotalDaysRegistered.String())
	})
	t.Run("Should return fractional days", func(t *testing.T) {
		s := Summarize([]*StatusChange{
			change(events.RegistrationStatus_Registered, genesis, 1),
		}, genesis.Add(36*time.Hour))
		assert.Equal(t, "1.5", s.TotalDaysRegistered.String())
	})
	t.Run("Should return nil without changes", func(t *testing.T) {
		assert.Nil(t, Summarize(nil, day(1)))
	})
}
