// Package server implements the HTTP server using Echo framework.
//
// Routes: REST API (car join/update/list/remove), WebSocket endpoint, health probes, metrics.
// Handlers split by domain: handlers_api.go, handlers_ws.go, handlers_health.go.
package server
