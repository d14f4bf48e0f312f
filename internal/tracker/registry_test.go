package tracker

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpsertAndAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	reg.Upsert("car-1", 52.52, 13.405, 90, "socket-a")
	reg.Upsert("car-2", 48.85, 2.35, 180, HTTPOnlySocket)

	cars := reg.All()
	require.Len(t, cars, 2)
	assert.Equal(t, 2, reg.Len())

	car := cars["car-1"]
	assert.Equal(t, "car-1", car.UUID)
	assert.Equal(t, Coord(52.52), car.Lat)
	assert.Equal(t, Coord(13.405), car.Long)
	assert.Equal(t, 90.0, car.Degree)
	assert.Equal(t, "socket-a", car.SocketID)
	assert.Equal(t, clock.Now().UnixMilli(), car.LastUpdate)
}

func TestRegistry_UpsertPreservesJoinedAt(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	first := reg.Upsert("car-1", 1, 2, 0, HTTPOnlySocket)

	clock.Advance(time.Minute)
	second := reg.Upsert("car-1", 3, 4, 10, "socket-a")

	assert.Equal(t, first.JoinedAt, second.JoinedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Greater(t, second.LastUpdate, first.LastUpdate)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AllReturnsSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	reg.Upsert("car-1", 1, 2, 0, HTTPOnlySocket)

	snapshot := reg.All()
	delete(snapshot, "car-1")

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Remove(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	reg.Upsert("car-1", 1, 2, 0, HTTPOnlySocket)

	assert.True(t, reg.Remove("car-1"))
	assert.False(t, reg.Remove("car-1"))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_FindBySocket(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	reg.Upsert("car-1", 1, 2, 0, "socket-c")
	reg.Upsert("car-2", 3, 4, 0, "socket-c")
	reg.Upsert("car-3", 5, 6, 0, "socket-d")
	reg.Upsert("car-4", 7, 8, 0, HTTPOnlySocket)

	uuids := reg.FindBySocket("socket-c")
	assert.ElementsMatch(t, []string{"car-1", "car-2"}, uuids)

	assert.Empty(t, reg.FindBySocket("socket-unknown"))
}

func TestRegistry_EvictStale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	reg.Upsert("old-car", 1, 2, 0, HTTPOnlySocket)

	clock.Advance(4 * time.Minute)
	reg.Upsert("fresh-car", 3, 4, 0, HTTPOnlySocket)

	clock.Advance(2 * time.Minute)

	evicted := reg.EvictStale(5 * time.Minute)
	assert.Equal(t, []string{"old-car"}, evicted)

	cars := reg.All()
	require.Len(t, cars, 1)
	assert.Contains(t, cars, "fresh-car")
}

func TestRegistry_EvictStale_ActivityResetsClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	reg.Upsert("car-1", 1, 2, 0, HTTPOnlySocket)
	clock.Advance(4 * time.Minute)
	reg.Upsert("car-1", 1, 2, 0, HTTPOnlySocket)
	clock.Advance(4 * time.Minute)

	assert.Empty(t, reg.EvictStale(5*time.Minute))
	assert.Equal(t, 1, reg.Len())
}
