package store

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/meteoradar/internal/sensor"
)

const entity = "sensor.rainviewer_meteoradar_UKBB2"

func state(id, value string, at time.Time) sensor.State {
	return sensor.State{
		EntityID:    id,
		State:       value,
		Attributes:  sensor.Attributes{Radar: "UKBB2", Success: value != ""},
		LastUpdated: at,
	}
}

func TestMemoryStore_GetStateReturnsLatest(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	s := NewMemoryStore(10, time.Hour, clock)

	_, err := s.GetState(entity)
	require.ErrorIs(t, err, ErrNotFound)

	s.SetState(state(entity, "first", clock.Now()))
	clock.Advance(5 * time.Minute)
	s.SetState(state(entity, "second", clock.Now()))

	got, err := s.GetState(entity)
	require.NoError(t, err)
	assert.Equal(t, "second", got.State)
}

func TestMemoryStore_RetentionByCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(2, 0, clock)

	for _, v := range []string{"a", "b", "c"} {
		s.SetState(state(entity, v, clock.Now()))
		clock.Advance(time.Minute)
	}

	all, err := s.GetRange(entity, time.Time{}, clock.Now())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].State)
	assert.Equal(t, "c", all[1].State)
}

func TestMemoryStore_RetentionByAge(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(0, 30*time.Minute, clock)

	s.SetState(state(entity, "old", clock.Now()))
	clock.Advance(time.Hour)
	s.SetState(state(entity, "new", clock.Now()))

	all, err := s.GetRange(entity, time.Time{}, clock.Now())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].State)
}

func TestMemoryStore_RetentionByAgeKeepsNewest(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(0, time.Minute, clock)

	s.SetState(state(entity, "stale", clock.Now().Add(-time.Hour)))

	got, err := s.GetState(entity)
	require.NoError(t, err)
	assert.Equal(t, "stale", got.State)
}

func TestMemoryStore_GetRange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, 0, clockwork.NewFakeClockAt(base))

	for i := 0; i < 4; i++ {
		s.SetState(state(entity, string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := s.GetRange(entity, base.Add(time.Minute), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].State)
	assert.Equal(t, "c", got[1].State)

	_, err = s.GetRange(entity, base.Add(time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRange("sensor.unknown", base, base.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(0, 0, clock)

	s.SetState(state("sensor.b", "1", clock.Now()))
	s.SetState(state("sensor.a", "1", clock.Now()))
	s.SetState(state("sensor.a", "2", clock.Now()))

	got := s.List()
	require.Len(t, got, 2)
	assert.Equal(t, "sensor.a", got[0].EntityID)
	assert.Equal(t, "2", got[0].State)
	assert.Equal(t, "sensor.b", got[1].EntityID)
}
