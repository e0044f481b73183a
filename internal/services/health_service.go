package services

import (
	"context"
	"runtime"
	"time"

	"hinosemi/internal/operations"
)

// ClientCounter reports connected push clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	index     *IndexService
	hub       ClientCounter
	startTime time.Time
	now       func() time.Time
}

// NewHealthService creates a health service. hub may be nil.
func NewHealthService(version string, index *IndexService, hub ClientCounter) *HealthService {
	return &HealthService{
		version:   version,
		index:     index,
		hub:       hub,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: hs.now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports ready once a snapshot can be served.
func (hs *HealthService) ReadinessCheck(ctx context.Context) (HealthStatus, bool) {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: hs.now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	ready := true
	if snap, err := hs.index.Snapshot(ctx); err != nil {
		ready = false
		status.Services["snapshot"] = map[string]string{"status": "unavailable", "message": err.Error()}
	} else {
		status.Services["snapshot"] = map[string]string{"status": "ready", "updated_at": snap.UpdatedAt}
	}

	view := hs.index.Status()
	runner := map[string]interface{}{
		"running":  view.Running,
		"runs":     view.Runs,
		"failures": view.Failures,
	}
	if view.Last != nil {
		runner["last_status"] = view.Last.Status
		if view.Last.Status == operations.RunStatusFailed {
			runner["last_error"] = view.Last.Error
		}
	}
	status.Services["runner"] = runner

	if hs.hub != nil {
		status.Services["websocket"] = map[string]int{"clients": hs.hub.ClientCount()}
	}

	if !ready {
		status.Status = "not_ready"
	}
	return status, ready
}
