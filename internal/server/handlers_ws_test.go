package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, serverURL string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWSFrame(t *testing.T, conn *ws.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame wsFrame
	require.NoError(t, json.Unmarshal(msg, &frame))
	return frame
}

// readGreeting consumes the connected greeting and returns the assigned socket ID.
func readGreeting(t *testing.T, conn *ws.Conn) string {
	t.Helper()
	frame := readWSFrame(t, conn)
	require.Equal(t, "connected", frame.Event)

	var data struct {
		SocketID string `json:"socketId"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	require.NotEmpty(t, data.SocketID)
	return data.SocketID
}

func sendWSFrame(t *testing.T, conn *ws.Conn, event string, data any) {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, msg))
}

func TestWebSocket_ConnectedGreeting(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts.URL)
	socketID := readGreeting(t, conn)
	assert.NotEmpty(t, socketID)
}

func TestWebSocket_UpdateSocketBindsAndConfirms(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts.URL)
	socketID := readGreeting(t, conn)

	sendWSFrame(t, conn, "UpdateSocket", map[string]any{"uuid": "car-1"})

	frame := readWSFrame(t, conn)
	require.Equal(t, "UpdateSocket", frame.Event)

	var reply struct {
		Status   string `json:"status"`
		SocketID string `json:"socketId"`
		UUID     string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &reply))
	assert.Equal(t, "success", reply.Status)
	assert.Equal(t, socketID, reply.SocketID)
	assert.Equal(t, "car-1", reply.UUID)
}

func TestWebSocket_UpdateSocketRejectsMalformedPayload(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts.URL)
	readGreeting(t, conn)

	sendWSFrame(t, conn, "UpdateSocket", map[string]any{})

	frame := readWSFrame(t, conn)
	require.Equal(t, "UpdateSocket", frame.Event)

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &reply))
	assert.Equal(t, "error", reply.Status)
	assert.Equal(t, "Invalid data format", reply.Message)
}

func TestWebSocket_LocationUpdateBroadcastsToOthers(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	sender := dialWS(t, ts.URL)
	readGreeting(t, sender)

	receiver := dialWS(t, ts.URL)
	readGreeting(t, receiver)

	sendWSFrame(t, sender, "location_update", map[string]any{
		"uuid":      "car-1",
		"latitude":  51.5,
		"longitude": -0.12,
	})

	// Sender gets a confirmation, not the broadcast.
	frame := readWSFrame(t, sender)
	assert.Equal(t, "location_confirmed", frame.Event)

	frame = readWSFrame(t, receiver)
	require.Equal(t, "location_broadcast", frame.Event)

	var data struct {
		UUID      string  `json:"uuid"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "car-1", data.UUID)
	assert.Equal(t, 51.5, data.Latitude)
	assert.Equal(t, -0.12, data.Longitude)
}

func TestWebSocket_DisconnectEvictsBoundCars(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	carConn := dialWS(t, ts.URL)
	carSocketID := readGreeting(t, carConn)

	observer := dialWS(t, ts.URL)
	readGreeting(t, observer)

	// Join two cars over HTTP, bound to the car connection's socket.
	rec := postJSON(t, srv, "/api/car_join",
		`{"uuid":"E1","lat":1.0,"long":2.0,"degree":0,"socket_id":"`+carSocketID+`"}`)
	require.Equal(t, "1", decodeBody(t, rec)["status"])
	rec = postJSON(t, srv, "/api/car_join",
		`{"uuid":"E2","lat":3.0,"long":4.0,"degree":0,"socket_id":"`+carSocketID+`"}`)
	require.Equal(t, "1", decodeBody(t, rec)["status"])

	// A third car on no socket stays untouched.
	postJSON(t, srv, "/api/car_join", `{"uuid":"E3","lat":5.0,"long":6.0,"degree":0}`)

	// The observer saw both join broadcasts.
	assert.Equal(t, "car_join", readWSFrame(t, observer).Event)
	assert.Equal(t, "car_join", readWSFrame(t, observer).Event)
	assert.Equal(t, "car_join", readWSFrame(t, observer).Event)

	carConn.Close()

	var removed []string
	for i := 0; i < 2; i++ {
		frame := readWSFrame(t, observer)
		require.Equal(t, "car_removed", frame.Event)

		var data struct {
			UUID   string `json:"uuid"`
			Reason string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(frame.Data, &data))
		assert.Equal(t, "socket_disconnect", data.Reason)
		removed = append(removed, data.UUID)
	}
	assert.ElementsMatch(t, []string{"E1", "E2"}, removed)

	require.Eventually(t, func() bool {
		locations := decodeBody(t, getJSON(t, srv, "/api/car_locations"))
		return locations["total_cars"] == float64(1)
	}, time.Second, 10*time.Millisecond)

	locations := decodeBody(t, getJSON(t, srv, "/api/car_locations"))
	assert.Contains(t, locations["payload"].(map[string]any), "E3")
}
