package tracker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stationhub/cartrack/internal/metrics"
)

// Broadcaster delivers an event to every open push channel except the
// excluded one. An empty excludeSocketID means deliver to all. Delivery is
// best-effort and never blocks the caller.
type Broadcaster interface {
	Broadcast(event string, payload any, excludeSocketID string)
}

// UpdateRequest carries the raw, already presence-validated fields of a join
// or location update. Lat, Long and Degree keep their wire representation
// (string or number); coercion happens inside the pipeline.
type UpdateRequest struct {
	UUID     string
	Lat      any
	Long     any
	Degree   any
	SocketID string
}

// JoinResult is the outcome of a join: a snapshot of every tracked car so
// the newcomer immediately learns about its peers.
type JoinResult struct {
	Cars  map[string]CarSummary
	Total int
}

// Service is the update pipeline. Every location-producing event, whether it
// arrived over HTTP or a socket, runs through here so registry state and
// broadcasts stay consistent regardless of ingress path.
type Service struct {
	registry *Registry
	sockets  *SocketIndex
	bc       Broadcaster
	clock    clockwork.Clock
}

func NewService(registry *Registry, sockets *SocketIndex, bc Broadcaster, clock clockwork.Clock) *Service {
	return &Service{
		registry: registry,
		sockets:  sockets,
		bc:       bc,
		clock:    clock,
	}
}

// Join registers or refreshes a car and returns the full registry snapshot.
func (s *Service) Join(req UpdateRequest) (result JoinResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error processing car join: %v", r)
		}
	}()

	s.apply(EventCarJoin, req)

	cars := s.registry.All()
	summaries := make(map[string]CarSummary, len(cars))
	for uuid, car := range cars {
		summaries[uuid] = car.Summary()
	}
	return JoinResult{Cars: summaries, Total: len(summaries)}, nil
}

// UpdateLocation refreshes a car's position. Unlike Join it returns no
// snapshot, only an acknowledgement.
func (s *Service) UpdateLocation(req UpdateRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error processing location update: %v", r)
		}
	}()

	s.apply(EventCarUpdateLocation, req)
	return nil
}

// apply runs the shared pipeline: normalize, bind, upsert, broadcast.
func (s *Service) apply(event string, req UpdateRequest) {
	degree := NormalizeDegree(req.Degree)
	lat := ParseCoord(req.Lat)
	long := ParseCoord(req.Long)

	socketID := req.SocketID
	if socketID != "" {
		s.sockets.Bind(req.UUID, socketID)
	} else {
		socketID = HTTPOnlySocket
	}

	s.registry.Upsert(req.UUID, lat, long, degree, socketID)

	payload := Envelope{
		Status: "1",
		Payload: map[string]any{
			"uuid":      req.UUID,
			"lat":       req.Lat,
			"long":      req.Long,
			"degree":    degree,
			"timestamp": s.timestamp(),
		},
	}
	s.bc.Broadcast(event, payload, req.SocketID)

	slog.Debug("Car position applied",
		"event", event,
		"car_uuid", req.UUID,
		"socket_id", socketID,
		"degree", degree,
	)
}

// Snapshot returns all tracked cars and their count.
func (s *Service) Snapshot() (map[string]Car, int) {
	cars := s.registry.All()
	return cars, len(cars)
}

// Remove deletes a car explicitly and notifies every connected client.
// Returns false if the car was not tracked.
func (s *Service) Remove(uuid string) bool {
	if !s.registry.Remove(uuid) {
		return false
	}
	s.sockets.Unbind(uuid)

	s.bc.Broadcast(EventCarRemoved, Envelope{
		Status: "1",
		Payload: map[string]any{
			"uuid":      uuid,
			"timestamp": s.timestamp(),
		},
	}, "")

	slog.Info("Car removed", "car_uuid", uuid)
	return true
}

// BindSocket associates a car with a socket without touching its position.
// Used by the UpdateSocket channel event.
func (s *Service) BindSocket(uuid, socketID string) {
	s.sockets.Bind(uuid, socketID)
	slog.Debug("Socket bound to car", "car_uuid", uuid, "socket_id", socketID)
}

// OnSocketClosed reconciles registry state after a push channel closes:
// every car last produced via that socket is evicted and announced as
// removed to the remaining clients. A close with no bound cars is a no-op.
func (s *Service) OnSocketClosed(socketID string) {
	uuids := s.registry.FindBySocket(socketID)
	for _, uuid := range uuids {
		s.registry.Remove(uuid)
		s.sockets.Unbind(uuid)
		metrics.DisconnectEvictionsTotal.Inc()

		s.bc.Broadcast(EventCarRemoved, Envelope{
			Status: "1",
			Payload: map[string]any{
				"uuid":      uuid,
				"reason":    "socket_disconnect",
				"timestamp": s.timestamp(),
			},
		}, socketID)
	}

	if len(uuids) > 0 {
		slog.Info("Cars removed after socket disconnect", "socket_id", socketID, "count", len(uuids))
	}
}

func (s *Service) timestamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}
