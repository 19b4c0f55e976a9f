package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pjas/storagenode/core/model"
	concurrentMap "github.com/pjas/storagenode/lib/concurrent_map"
)

// MetadataStore owns the durable chunk_id -> record mapping. Reads go
// through a concurrent map without locking; every mutation and the
// following rewrite of the metadata file run under one mutex, so two
// concurrent stores can never persist a structure missing each other's
// record.
type MetadataStore struct {
	mu     sync.Mutex
	path   string
	nodeID string

	chunks      concurrentMap.Map[string, model.ChunkRecord]
	totalStored int64
}

func NewMetadataStore(path, nodeID string) *MetadataStore {
	return &MetadataStore{
		path:   path,
		nodeID: nodeID,
		chunks: concurrentMap.NewMap[string, model.ChunkRecord](),
	}
}

// Load reads the metadata file, or seeds a fresh structure and persists it
// immediately so the file exists after the first load. A persisted node id
// wins over the configured one.
func (m *MetadataStore) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return m.persistLocked()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	var metadata model.NodeMetadata
	if err := json.Unmarshal(b, &metadata); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	m.nodeID = metadata.NodeID
	m.totalStored = metadata.TotalStored
	for id, rec := range metadata.Chunks {
		m.chunks.Set(id, rec)
	}

	return nil
}

// NodeID returns the node id pinned by the metadata file.
func (m *MetadataStore) NodeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.nodeID
}

// PutChunkRecord inserts or replaces a record and rewrites the full
// metadata file.
func (m *MetadataStore) PutChunkRecord(chunkID string, rec model.ChunkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, exists := m.chunks.Get(chunkID)
	if exists {
		m.totalStored -= prev.Size
	}

	m.chunks.Set(chunkID, rec)
	m.totalStored += rec.Size

	return m.persistLocked()
}

// GetChunkRecord is lock free; it reads the concurrent map directly.
func (m *MetadataStore) GetChunkRecord(chunkID string) (*model.ChunkRecord, bool) {
	return m.chunks.Get(chunkID)
}

func (m *MetadataStore) snapshotLocked() model.NodeMetadata {
	return model.NodeMetadata{
		NodeID:      m.nodeID,
		Chunks:      m.chunks.Items(),
		TotalStored: m.totalStored,
	}
}

// persistLocked writes the structure next to its final path and renames it
// over, so a reader never observes a torn metadata file.
func (m *MetadataStore) persistLocked() error {
	b, err := json.MarshalIndent(m.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return nil
}
