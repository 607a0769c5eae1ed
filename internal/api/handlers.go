package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component's health probe.
const healthCheckTimeout = 3 * time.Second

// componentHealth reports one dependency's health probe result.
type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth probes every wired component and reports per-component state.
//
// The response is 200 with status "ok" when all probes pass, 503 with
// status "degraded" otherwise. Components not wired in (MQTT, InfluxDB
// disabled in config) report "disabled" and do not degrade the result.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]componentHealth{
		"store":    s.probe(r.Context(), s.store),
		"mqtt":     s.probe(r.Context(), s.mqtt),
		"influxdb": s.probe(r.Context(), s.influx),
	}

	status := "ok"
	code := http.StatusOK
	for _, c := range components {
		if c.Status == "error" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

// probe runs one component's health check with a bounded timeout.
func (s *Server) probe(ctx context.Context, c HealthChecker) componentHealth {
	if c == nil {
		return componentHealth{Status: "disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.HealthCheck(checkCtx); err != nil {
		return componentHealth{Status: "error", Error: err.Error()}
	}
	return componentHealth{Status: "ok"}
}

// handleStatus returns a daemon overview: uptime, device count, gateways.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	servers := s.tree.Servers()
	gateways := make([]map[string]any, 0, len(servers))
	for _, srv := range servers {
		gateways = append(gateways, map[string]any{
			"name": srv.Name,
			"host": srv.Host,
			"port": srv.Port,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"device_count":   s.tree.DeviceCount(),
		"gateways":       gateways,
	})
}

// handleListDevices returns the current tree snapshot, sorted by address.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.tree.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device by canonical address.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		writeBadRequest(w, "device address required")
		return
	}

	for _, node := range s.tree.Snapshot() {
		if node.Address == address {
			writeJSON(w, http.StatusOK, node)
			return
		}
	}

	writeNotFound(w, "device not found: "+address)
}

// handleListServers returns the configured bus gateways.
func (s *Server) handleListServers(w http.ResponseWriter, _ *http.Request) {
	servers := s.tree.Servers()
	out := make([]map[string]any, 0, len(servers))
	for _, srv := range servers {
		out = append(out, map[string]any{
			"name": srv.Name,
			"host": srv.Host,
			"port": srv.Port,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"servers": out,
		"count":   len(out),
	})
}
