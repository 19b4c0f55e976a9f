package model

// NodeMetadata is the durable state of a node, persisted as a single JSON
// document and rewritten wholesale on every successful store.
type NodeMetadata struct {
	NodeID string                 `json:"node_id"`
	Chunks map[string]ChunkRecord `json:"chunks"`
	// TotalStored is informational only. Actual usage is always recomputed
	// from the chunk directory.
	TotalStored int64 `json:"total_stored"`
}

// StorageStats is a snapshot of the node's capacity state.
type StorageStats struct {
	UsedBytes      int64 `json:"used_bytes"`
	AllocatedBytes int64 `json:"allocated_bytes"`
	// FreeBytes goes negative on an over-allocated node. Deliberately not
	// clamped so the condition stays observable.
	FreeBytes    int64   `json:"free_bytes"`
	ChunkCount   int     `json:"chunk_count"`
	UsagePercent float64 `json:"usage_percent"`
}
