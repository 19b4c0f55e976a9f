package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pjas/storagenode/core/model"
	"github.com/pjas/storagenode/lib/checksum"
	"github.com/pjas/storagenode/lib/metrics"
)

var (
	ErrInsufficientSpace = errors.New("not enough free space")
	ErrChunkNotFound     = errors.New("chunk not found")
	ErrChunkCorrupted    = errors.New("chunk corrupted")
	ErrStorageFailure    = errors.New("storage failure")
)

const chunkFileSuffix = ".chunk"

// ChunkService persists and serves chunks. One file per chunk, named by its
// id, raw bytes, no framing.
type ChunkService struct {
	chunksDir string
	metadata  *MetadataStore
	capacity  *CapacityService
	metrics   *metrics.NodeMetrics
}

func NewChunkService(chunksDir string, metadata *MetadataStore, capacity *CapacityService, m *metrics.NodeMetrics) (*ChunkService, error) {
	if err := os.MkdirAll(chunksDir, 0750); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &ChunkService{
		chunksDir: chunksDir,
		metadata:  metadata,
		capacity:  capacity,
		metrics:   m,
	}, nil
}

func (cs *ChunkService) ChunkPath(chunkID string) string {
	return filepath.Join(cs.chunksDir, chunkID+chunkFileSuffix)
}

// StoreChunk admits, persists and records one chunk. The admission check is
// a soft limit: two stores racing past the same stats snapshot can still
// overshoot the allocation. A rejected store writes nothing. Overwriting an
// existing id replaces both bytes and record.
func (cs *ChunkService) StoreChunk(chunkID string, data []byte, fileID string) (int, error) {
	stats := cs.capacity.GetStorageStats()
	if int64(len(data)) > stats.FreeBytes {
		return 0, ErrInsufficientSpace
	}

	if err := os.WriteFile(cs.ChunkPath(chunkID), data, 0644); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	rec := model.ChunkRecord{
		FileID:   fileID,
		Size:     int64(len(data)),
		Created:  time.Now().UTC(),
		Checksum: checksum.Sum(data),
	}

	if err := cs.metadata.PutChunkRecord(chunkID, rec); err != nil {
		return 0, err
	}

	cs.metrics.ChunksStored.Inc()
	cs.metrics.BytesStored.Add(float64(len(data)))

	return len(data), nil
}

// RetrieveChunk reads a chunk back and verifies it against the recorded
// digest. A chunk file without a metadata record is served unverified; a
// node that lost metadata can still hand back the bytes it holds.
func (cs *ChunkService) RetrieveChunk(chunkID string) ([]byte, error) {
	data, err := os.ReadFile(cs.ChunkPath(chunkID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	rec, exists := cs.metadata.GetChunkRecord(chunkID)
	if !exists {
		log.Warnw("chunkService", "event", "serving chunk without metadata record", "chunkID", chunkID)
		return data, nil
	}

	if !checksum.Matches(data, rec.Checksum) {
		cs.metrics.ChecksumFailures.Inc()
		return nil, ErrChunkCorrupted
	}

	cs.metrics.ChunksServed.Inc()
	cs.metrics.BytesServed.Add(float64(len(data)))

	return data, nil
}

// ChunkExists reports whether the chunk file is present on disk.
func (cs *ChunkService) ChunkExists(chunkID string) bool {
	_, err := os.Stat(cs.ChunkPath(chunkID))
	return err == nil
}
