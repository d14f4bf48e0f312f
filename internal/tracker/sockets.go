package tracker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Binding associates a car with the socket it can be reached on.
type Binding struct {
	SocketID string
	BoundAt  time.Time
}

// SocketIndex is the channel registry: at most one binding per car UUID,
// last writer wins. It is a reachability cache only and carries no authority
// over delivery.
type SocketIndex struct {
	clock clockwork.Clock

	mu    sync.Mutex
	byCar map[string]Binding
}

func NewSocketIndex(clock clockwork.Clock) *SocketIndex {
	return &SocketIndex{
		clock: clock,
		byCar: make(map[string]Binding),
	}
}

// Bind sets or overwrites the binding for uuid.
func (s *SocketIndex) Bind(uuid, socketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCar[uuid] = Binding{SocketID: socketID, BoundAt: s.clock.Now()}
}

// Unbind removes the binding for uuid if present.
func (s *SocketIndex) Unbind(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCar, uuid)
}

// Lookup returns the socket bound to uuid, if any.
func (s *SocketIndex) Lookup(uuid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	binding, ok := s.byCar[uuid]
	return binding.SocketID, ok
}
