package tracker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stationhub/cartrack/internal/metrics"
)

// Registry is the location registry: the single owner of all Car records.
// All access goes through its methods; mutations and snapshot reads are
// serialized under one mutex so a half-written record is never observable.
type Registry struct {
	clock clockwork.Clock

	mu   sync.Mutex
	cars map[string]Car
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock: clock,
		cars:  make(map[string]Car),
	}
}

// Upsert inserts or overwrites the record for uuid and stamps it as active
// now. JoinedAt is preserved across overwrites of an existing record.
func (r *Registry) Upsert(uuid string, lat, long Coord, degree float64, socketID string) Car {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	car, exists := r.cars[uuid]
	if !exists {
		car = Car{UUID: uuid, JoinedAt: now}
	}
	car.Lat = lat
	car.Long = long
	car.Degree = degree
	car.SocketID = socketID
	car.UpdatedAt = now
	car.LastUpdate = now.UnixMilli()
	car.lastSeen = now

	r.cars[uuid] = car
	metrics.CarsTracked.Set(float64(len(r.cars)))
	return car
}

// All returns a snapshot of every tracked car keyed by UUID.
func (r *Registry) All() map[string]Car {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]Car, len(r.cars))
	for uuid, car := range r.cars {
		snapshot[uuid] = car
	}
	return snapshot
}

// Len returns the number of tracked cars.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cars)
}

// Remove deletes the record for uuid and reports whether anything was removed.
func (r *Registry) Remove(uuid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cars[uuid]; !exists {
		return false
	}
	delete(r.cars, uuid)
	metrics.CarsTracked.Set(float64(len(r.cars)))
	return true
}

// FindBySocket returns the UUIDs of all cars whose record was last produced
// via the given socket. Linear scan; the live car count stays small.
func (r *Registry) FindBySocket(socketID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var uuids []string
	for uuid, car := range r.cars {
		if car.SocketID == socketID {
			uuids = append(uuids, uuid)
		}
	}
	return uuids
}

// EvictStale removes every car whose last activity is older than the
// threshold and returns the evicted UUIDs. Runs under the same lock as
// ordinary updates.
func (r *Registry) EvictStale(olderThan time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var evicted []string
	for uuid, car := range r.cars {
		if now.Sub(car.lastSeen) > olderThan {
			delete(r.cars, uuid)
			evicted = append(evicted, uuid)
		}
	}
	if len(evicted) > 0 {
		metrics.CarsTracked.Set(float64(len(r.cars)))
	}
	return evicted
}
