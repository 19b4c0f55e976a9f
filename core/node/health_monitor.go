package node

import (
	"context"
	"time"

	"github.com/pjas/storagenode/core/coordinator"
	"github.com/pjas/storagenode/lib/metrics"
)

const heartbeatInterval = 30 * time.Second

// HealthMonitorService pushes capacity snapshots to the coordinator for the
// lifetime of the process. Failures are logged and swallowed; an
// unreachable coordinator must never affect chunk serving.
type HealthMonitorService struct {
	client   *coordinator.Client
	capacity *CapacityService
	metrics  *metrics.NodeMetrics
	nodeID   string
	interval time.Duration
}

func NewHealthMonitorService(client *coordinator.Client, capacity *CapacityService, m *metrics.NodeMetrics, nodeID string) *HealthMonitorService {
	return &HealthMonitorService{
		client:   client,
		capacity: capacity,
		metrics:  m,
		nodeID:   nodeID,
		interval: heartbeatInterval,
	}
}

// Start ticks every interval and triggers Report in a new goroutine until
// ctx is cancelled.
func (h *HealthMonitorService) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go h.Report(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Report sends a single heartbeat.
func (h *HealthMonitorService) Report(ctx context.Context) {
	stats := h.capacity.GetStorageStats()
	h.metrics.UsedBytes.Set(float64(stats.UsedBytes))

	if err := h.client.Heartbeat(ctx, h.nodeID, stats); err != nil {
		h.metrics.HeartbeatFailures.Inc()
		log.Warnw("healthMonitor", "event", "heartbeat failed", "error", err)
	}
}
