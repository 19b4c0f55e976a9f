// Package coordinator holds the wire types for the coordinator HTTP API.
// The coordinator answers with arbitrary JSON which the node does not
// interpret.
package coordinator

import (
	"time"

	"github.com/pjas/storagenode/core/model"
)

type RegisterRequest struct {
	NodeID       string             `json:"node_id"`
	Address      string             `json:"address"`
	StorageStats model.StorageStats `json:"storage_stats"`
	Status       string             `json:"status"`
	Version      string             `json:"version"`
}

type HeartbeatRequest struct {
	NodeID       string             `json:"node_id"`
	StorageStats model.StorageStats `json:"storage_stats"`
	Timestamp    time.Time          `json:"timestamp"`
}
