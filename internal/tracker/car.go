// Package tracker owns the in-memory car location registry, the socket
// bindings that correlate cars with live push channels, and the update
// pipeline that fans every position change out to connected clients.
package tracker

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// HTTPOnlySocket marks records produced by plain HTTP requests that carried
// no socket identity.
const HTTPOnlySocket = "http_only"

// Broadcast event names.
const (
	EventCarJoin           = "car_join"
	EventCarUpdateLocation = "car_update_location"
	EventCarRemoved        = "car_removed"
)

// Coord is a latitude or longitude value. Inputs are accepted permissively:
// an unparseable coordinate becomes NaN, which marshals as null instead of
// failing the whole response.
type Coord float64

func (c Coord) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(c)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(c))
}

// Car is the last known state of one tracked vehicle. Exactly one record
// exists per UUID; absence means the car is gone.
type Car struct {
	UUID       string    `json:"uuid"`
	Lat        Coord     `json:"lat"`
	Long       Coord     `json:"long"`
	Degree     float64   `json:"degree"`
	LastUpdate int64     `json:"lastUpdate"`
	SocketID   string    `json:"socket_id"`
	JoinedAt   time.Time `json:"joined_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// lastSeen is a monotonic reading used only by the staleness sweeper.
	lastSeen time.Time
}

// CarSummary is the trimmed view returned to a joining client.
type CarSummary struct {
	UUID       string  `json:"uuid"`
	Lat        Coord   `json:"lat"`
	Long       Coord   `json:"long"`
	Degree     float64 `json:"degree"`
	LastUpdate int64   `json:"lastUpdate"`
}

// Summary returns the trimmed join-snapshot view of the car.
func (c Car) Summary() CarSummary {
	return CarSummary{
		UUID:       c.UUID,
		Lat:        c.Lat,
		Long:       c.Long,
		Degree:     c.Degree,
		LastUpdate: c.LastUpdate,
	}
}

// Envelope is the status wrapper every broadcast payload carries.
type Envelope struct {
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload"`
}

// NormalizeDegree coerces a heading to the range [0, 360). Unparseable
// values, NaN, and out-of-range headings all collapse to 0.
func NormalizeDegree(v any) float64 {
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || f < 0 || f >= 360 {
		return 0
	}
	return f
}

// ParseCoord coerces a latitude or longitude. Unlike headings, coordinates
// are not range-checked; an unparseable value becomes NaN.
func ParseCoord(v any) Coord {
	f, ok := parseFloat(v)
	if !ok {
		return Coord(math.NaN())
	}
	return Coord(f)
}

func parseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
