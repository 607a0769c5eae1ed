package health

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/onewire-sync/internal/infrastructure/mqtt"
	"github.com/nerrad567/onewire-sync/internal/store"
)

// Status values carried by the periodic health message.
type Status string

const (
	// StatusHealthy indicates the daemon is operating normally.
	StatusHealthy Status = "healthy"

	// StatusDegraded indicates the daemon is running with issues.
	StatusDegraded Status = "degraded"

	// StatusStarting indicates the daemon is starting up.
	StatusStarting Status = "starting"

	// StatusStopping indicates the daemon is shutting down.
	StatusStopping Status = "stopping"
)

// Publisher is the interface for publishing health messages.
// This is typically implemented by the MQTT client.
type Publisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// DeviceCounter reports how many devices are currently attached.
// Implemented by tree.Root.
type DeviceCounter interface {
	DeviceCount() int
}

// Message is the periodic health report published over MQTT.
// Topic: owsync/system/health, QoS 1, retained.
type Message struct {
	// Service is the daemon's configured service identifier.
	Service string `json:"service"`

	// Timestamp is when the report was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Status is the current operational status.
	Status Status `json:"status"`

	// Version is the daemon software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the daemon has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// DevicesAttached is the number of devices currently on the bus.
	DevicesAttached int `json:"devices_attached"`

	// ReportsWorking counts successful sync reports since start.
	ReportsWorking uint64 `json:"reports_working"`

	// ReportsError counts failed sync reports since start.
	ReportsError uint64 `json:"reports_error"`

	// Reason explains the status (especially for degraded).
	Reason string `json:"reason,omitempty"`
}

// ReporterConfig holds configuration for the health reporter.
type ReporterConfig struct {
	// ServiceID identifies this daemon instance in reports.
	ServiceID string

	// Version is the daemon software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// QoS for health publications. Default 1.
	QoS byte

	// Publisher is the MQTT client for publishing messages.
	Publisher Publisher

	// Devices provides the attached device count. Optional.
	Devices DeviceCounter
}

// Reporter publishes the daemon's health over MQTT at regular intervals,
// and mirrors per-path sync reports to retained state topics.
//
// It implements Sink, so it can sit alongside a StoreSink in a MultiSink:
// every working/error report is published to owsync/state/<path> as well
// as counted into the periodic health message.
type Reporter struct {
	serviceID string
	version   string
	startTime time.Time
	interval  time.Duration
	qos       byte
	publisher Publisher

	devices   DeviceCounter
	devicesMu sync.RWMutex

	workingTotal atomic.Uint64
	errorTotal   atomic.Uint64

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex
}

var _ Sink = (*Reporter)(nil)

// NewReporter creates a health reporter. Call Start to begin reporting.
func NewReporter(cfg ReporterConfig) *Reporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	qos := cfg.QoS
	if qos == 0 {
		qos = 1
	}

	return &Reporter{
		serviceID: cfg.ServiceID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		qos:       qos,
		publisher: cfg.Publisher,
		devices:   cfg.Devices,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting.
// Must be called after creation. Call Stop to shut down.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		// Best-effort final status, nothing to do if it fails.
		_ = r.publishStatus(StatusStopping, "")
	})
}

// SetDeviceCounter sets the device count source. The sink chain is built
// before the tree exists, so the counter is wired in afterwards.
func (r *Reporter) SetDeviceCounter(devices DeviceCounter) {
	r.devicesMu.Lock()
	r.devices = devices
	r.devicesMu.Unlock()
}

// SetLogger sets the logger for this reporter.
func (r *Reporter) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
// Called during daemon initialization.
func (r *Reporter) PublishStarting() error {
	return r.publishStatus(StatusStarting, "daemon starting")
}

// PublishNow publishes the current health status immediately.
// Useful for forcing an update after a significant event.
func (r *Reporter) PublishNow() error {
	status, reason := r.determineStatus()
	return r.publishStatus(status, reason)
}

// RecordWorking implements Sink. The report is counted and mirrored to the
// path's retained state topic.
func (r *Reporter) RecordWorking(_ context.Context, _ string, path store.Path, comment string) {
	r.workingTotal.Add(1)

	record := map[string]any{
		"state":   StateWorking,
		"updated": time.Now().UTC().Format(time.RFC3339),
	}
	if comment != "" {
		record["comment"] = comment
	}
	r.publishState(path, record)
}

// RecordError implements Sink.
func (r *Reporter) RecordError(_ context.Context, _ string, path store.Path, err error, data map[string]any) {
	r.errorTotal.Add(1)

	record := map[string]any{
		"state":   StateError,
		"updated": time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		record["comment"] = err.Error()
	}
	if len(data) > 0 {
		record["data"] = sanitize(data)
	}
	r.publishState(path, record)
}

// publishState mirrors one sync report to owsync/state/<path>, retained so
// late subscribers see the last known state. Skipped while disconnected; the
// StoreSink remains the durable record.
func (r *Reporter) publishState(path store.Path, record map[string]any) {
	if r.publisher == nil || !r.publisher.IsConnected() {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		r.logError("failed to encode state record", err)
		return
	}

	topic := mqtt.Topics{}.SyncState(path.String())
	if err := r.publisher.Publish(topic, payload, r.qos, true); err != nil {
		r.logError("failed to publish state record", err)
	}
}

// reportLoop runs the periodic health reporting.
func (r *Reporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.PublishNow(); err != nil {
		r.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if err := r.PublishNow(); err != nil {
				r.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current daemon status.
func (r *Reporter) determineStatus() (Status, string) {
	if r.publisher == nil || !r.publisher.IsConnected() {
		return StatusDegraded, "MQTT disconnected"
	}
	return StatusHealthy, ""
}

// publishStatus publishes a health status message.
func (r *Reporter) publishStatus(status Status, reason string) error {
	if r.publisher == nil {
		return nil
	}

	r.devicesMu.RLock()
	devices := r.devices
	r.devicesMu.RUnlock()

	deviceCount := 0
	if devices != nil {
		deviceCount = devices.DeviceCount()
	}

	msg := Message{
		Service:         r.serviceID,
		Timestamp:       time.Now().UTC(),
		Status:          status,
		Version:         r.version,
		UptimeSeconds:   int64(time.Since(r.startTime).Seconds()),
		DevicesAttached: deviceCount,
		ReportsWorking:  r.workingTotal.Load(),
		ReportsError:    r.errorTotal.Load(),
		Reason:          reason,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return r.publisher.Publish(mqtt.Topics{}.SystemHealth(), payload, r.qos, true)
}

// logError logs an error if a logger is set.
func (r *Reporter) logError(msg string, err error) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
