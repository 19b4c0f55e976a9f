package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pjas/storagenode/core/coordinator"
	"github.com/pjas/storagenode/lib/logger"
	"github.com/pjas/storagenode/lib/metrics"
)

var log, _ = logger.New("node")

// Version is reported to the coordinator on registration.
const Version = "0.1.0"

// Node composes the storage services with the coordinator client. The node
// process exclusively owns everything under its storage directory.
type Node struct {
	*ChunkService
	*MetadataStore
	*CapacityService
	*HealthMonitorService

	Cfg         *Config
	ID          string
	Coordinator *coordinator.Client
	Metrics     *metrics.NodeMetrics
	Registry    *prometheus.Registry
}

func NewNode(cfg *Config, reg *prometheus.Registry) (*Node, error) {
	if cfg.Storage.AllocatedGB <= 0 {
		return nil, fmt.Errorf("allocated capacity must be positive, got %dGB", cfg.Storage.AllocatedGB)
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	chunksDir := filepath.Join(cfg.Storage.Path, "chunks")
	metadataPath := filepath.Join(cfg.Storage.Path, "node_metadata.json")

	if err := os.MkdirAll(cfg.Storage.Path, 0750); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	metadataStore := NewMetadataStore(metadataPath, nodeID)
	if err := metadataStore.Load(); err != nil {
		return nil, err
	}

	capacity := NewCapacityService(chunksDir, cfg.AllocatedBytes())

	// metrics carry the pinned id, which may differ from the configured one
	// when the storage directory already existed
	m := metrics.New(reg, metadataStore.NodeID())

	chunkService, err := NewChunkService(chunksDir, metadataStore, capacity, m)
	if err != nil {
		return nil, err
	}

	client := coordinator.NewClient(cfg.Coordinator.URL)

	return &Node{
		ChunkService:         chunkService,
		MetadataStore:        metadataStore,
		CapacityService:      capacity,
		HealthMonitorService: NewHealthMonitorService(client, capacity, m, metadataStore.NodeID()),
		Cfg:                  cfg,
		ID:                   metadataStore.NodeID(),
		Coordinator:          client,
		Metrics:              m,
		Registry:             reg,
	}, nil
}

// Register announces the node to the coordinator. Failure is logged and the
// node keeps serving; the coordinator catches up on the next heartbeat.
func (n *Node) Register(ctx context.Context, address string) {
	stats := n.GetStorageStats()

	if err := n.Coordinator.Register(ctx, n.ID, address, stats, Version); err != nil {
		log.Warnw("startup", "event", "registration failed", "error", err)
		return
	}

	log.Infow("startup", "event", "registered with coordinator", "nodeID", n.ID)
}

// StartHealthReport runs the heartbeat loop until ctx is cancelled.
func (n *Node) StartHealthReport(ctx context.Context) {
	n.HealthMonitorService.Start(ctx)
}
