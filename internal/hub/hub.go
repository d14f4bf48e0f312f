// Package hub owns the set of open push channels. A single actor goroutine
// serializes registration, unregistration, and fan-out, so the connection
// map is never touched concurrently.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stationhub/cartrack/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// Frame is the wire format for every server-to-client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	replyChannel chan registerReply
}

type registerReply struct {
	socketID string
	err      error
}

type unregisterCmd struct {
	baseHubCmd
	socketID string
}

type broadcastCmd struct {
	baseHubCmd
	event           string
	data            []byte
	excludeSocketID string
}

type sendCmd struct {
	baseHubCmd
	socketID string
	data     []byte
}

type countCmd struct {
	baseHubCmd
	replyChannel chan int
}

type setOnCloseCmd struct {
	baseHubCmd
	fn func(socketID string)
}

type stopCmd struct {
	baseHubCmd
}

// Hub tracks every open socket by its assigned ID and fans events out to
// them. onClose is invoked after a socket leaves the hub, giving the tracker
// a chance to reconcile cars bound to it.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	clients    map[string]*clientWriter
	onClose    func(socketID string)
	done       chan struct{}
	maxSockets int
	sendBuffer int
}

func New(clock clockwork.Clock, maxSockets, sendBuffer int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clock:      clock,
		clients:    make(map[string]*clientWriter),
		done:       make(chan struct{}),
		maxSockets: maxSockets,
		sendBuffer: sendBuffer,
	}
	go h.run()
	return h
}

// SetOnClose installs the disconnect callback. Routed through the actor so
// the field is only ever touched from the hub goroutine.
func (h *Hub) SetOnClose(fn func(socketID string)) {
	h.cmdCh <- setOnCloseCmd{fn: fn}
}

// Register adds a connection and returns its assigned socket ID.
func (h *Hub) Register(conn *websocket.Conn) (string, error) {
	replyCh := make(chan registerReply, 1)
	h.cmdCh <- registerCmd{connection: conn, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.socketID, reply.err
	case <-timer.Chan():
		return "", fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from the hub. Safe to call after the
// socket was already evicted.
func (h *Hub) Unregister(socketID string) {
	h.cmdCh <- unregisterCmd{socketID: socketID}
}

// Broadcast delivers an event to every open socket except excludeSocketID.
// An empty excludeSocketID delivers to all.
func (h *Hub) Broadcast(event string, payload any, excludeSocketID string) {
	data, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal broadcast frame", "event", event, "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{event: event, data: data, excludeSocketID: excludeSocketID}
}

// Send delivers an event to one socket only.
func (h *Hub) Send(socketID, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal unicast frame", "event", event, "error", err)
		return
	}
	h.cmdCh <- sendCmd{socketID: socketID, data: data}
}

// ClientCount returns the number of open sockets, or -1 on timeout.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- countCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections. Blocks until the
// hub goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.socketID)
		case broadcastCmd:
			h.handleBroadcast(c)
		case sendCmd:
			h.handleSend(c)
		case countCmd:
			c.replyChannel <- len(h.clients)
		case setOnCloseCmd:
			h.onClose = c.fn
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxSockets {
		slog.Warn("Rejecting client: max sockets reached", "max_sockets", h.maxSockets)
		c.connection.Close()
		c.replyChannel <- registerReply{err: fmt.Errorf("max sockets (%d) reached", h.maxSockets)}
		return
	}

	socketID := uuid.NewString()
	h.clients[socketID] = newClientWriter(c.connection, h.clock, h.sendBuffer)
	metrics.ConnectedSockets.Set(float64(len(h.clients)))

	slog.Info("Client connected", "socket_id", socketID, "total_clients", len(h.clients))
	c.replyChannel <- registerReply{socketID: socketID}
}

func (h *Hub) handleUnregister(socketID string) {
	cw, exists := h.clients[socketID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, socketID)
	metrics.ConnectedSockets.Set(float64(len(h.clients)))

	slog.Info("Client disconnected", "socket_id", socketID, "remaining_clients", len(h.clients))

	// Run asynchronously: the callback may broadcast, which enqueues back
	// onto the command channel.
	if h.onClose != nil {
		go h.onClose(socketID)
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	metrics.BroadcastsTotal.WithLabelValues(c.event).Inc()

	var slow []string
	for socketID, cw := range h.clients {
		if socketID == c.excludeSocketID {
			continue
		}
		select {
		case cw.sendChannel <- c.data:
		default:
			slow = append(slow, socketID)
		}
	}

	for _, socketID := range slow {
		slog.Warn("Disconnecting slow client", "socket_id", socketID)
		metrics.SlowClientsEvictedTotal.Inc()
		h.handleUnregister(socketID)
	}
}

func (h *Hub) handleSend(c sendCmd) {
	cw, exists := h.clients[c.socketID]
	if !exists {
		return
	}

	select {
	case cw.sendChannel <- c.data:
	default:
		slog.Warn("Disconnecting slow client", "socket_id", c.socketID)
		metrics.SlowClientsEvictedTotal.Inc()
		h.handleUnregister(c.socketID)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "total_clients", len(h.clients))
	for socketID, cw := range h.clients {
		cw.stopGraceful("Server shutting down")
		delete(h.clients, socketID)
	}
	metrics.ConnectedSockets.Set(0)
}
