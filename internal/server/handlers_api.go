package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stationhub/cartrack/internal/tracker"
)

const msgSuccess = "successfully"

// bindBody decodes a JSON request body into a loosely typed map. The car
// clients send lat/long/degree as either strings or numbers; coercion is the
// pipeline's job, not the transport's.
func bindBody(c echo.Context) (map[string]any, error) {
	body := map[string]any{}
	if err := c.Bind(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// requireFields returns the name of the first missing or empty required
// field, or "" if all are present. Handlers short-circuit before the
// pipeline ever sees an incomplete payload.
func requireFields(body map[string]any, fields ...string) string {
	for _, field := range fields {
		v, ok := body[field]
		if !ok || v == nil {
			return field
		}
		if s, isString := v.(string); isString && s == "" {
			return field
		}
	}
	return ""
}

// respondFail writes the in-band failure envelope. The legacy API contract
// reports failures with HTTP 200 and status "0".
func respondFail(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "0",
		"message": message,
	})
}

func updateRequestFromBody(body map[string]any) tracker.UpdateRequest {
	socketID, _ := body["socket_id"].(string)
	return tracker.UpdateRequest{
		UUID:     fmt.Sprintf("%v", body["uuid"]),
		Lat:      body["lat"],
		Long:     body["long"],
		Degree:   body["degree"],
		SocketID: socketID,
	}
}

func (s *Server) handleCarJoin(c echo.Context) error {
	body, err := bindBody(c)
	if err != nil {
		return respondFail(c, "invalid request body")
	}
	if missing := requireFields(body, "uuid", "lat", "long", "degree"); missing != "" {
		return respondFail(c, missing+" is required")
	}

	result, err := s.tracker.Join(updateRequestFromBody(body))
	if err != nil {
		return respondFail(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "1",
		"payload":    result.Cars,
		"message":    msgSuccess,
		"total_cars": result.Total,
	})
}

func (s *Server) handleCarUpdateLocation(c echo.Context) error {
	body, err := bindBody(c)
	if err != nil {
		return respondFail(c, "invalid request body")
	}
	if missing := requireFields(body, "uuid", "lat", "long", "degree"); missing != "" {
		return respondFail(c, missing+" is required")
	}

	if err := s.tracker.UpdateLocation(updateRequestFromBody(body)); err != nil {
		return respondFail(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    "1",
		"message":   msgSuccess,
		"timestamp": s.timestamp(),
	})
}

func (s *Server) handleCarLocations(c echo.Context) error {
	cars, total := s.tracker.Snapshot()

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "1",
		"payload":    cars,
		"total_cars": total,
		"timestamp":  s.timestamp(),
	})
}

func (s *Server) handleCarRemove(c echo.Context) error {
	body, err := bindBody(c)
	if err != nil {
		return respondFail(c, "invalid request body")
	}
	if missing := requireFields(body, "uuid"); missing != "" {
		return respondFail(c, missing+" is required")
	}

	uuid := fmt.Sprintf("%v", body["uuid"])
	if !s.tracker.Remove(uuid) {
		return respondFail(c, "Car not found")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "1",
		"message": "Car removed successfully",
	})
}
