package node

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjas/storagenode/core/model"
	"github.com/pjas/storagenode/lib/checksum"
	"github.com/pjas/storagenode/lib/metrics"
)

type storeFixture struct {
	chunks       *ChunkService
	capacity     *CapacityService
	chunksDir    string
	metadataPath string
}

func newStoreFixture(t *testing.T, allocatedBytes int64) *storeFixture {
	t.Helper()

	dir := t.TempDir()
	chunksDir := filepath.Join(dir, "chunks")
	metadataPath := filepath.Join(dir, "node_metadata.json")

	metadataStore := NewMetadataStore(metadataPath, "test-node")
	require.NoError(t, metadataStore.Load())

	capacity := NewCapacityService(chunksDir, allocatedBytes)
	m := metrics.New(prometheus.NewRegistry(), "test-node")

	chunks, err := NewChunkService(chunksDir, metadataStore, capacity, m)
	require.NoError(t, err)

	return &storeFixture{
		chunks:       chunks,
		capacity:     capacity,
		chunksDir:    chunksDir,
		metadataPath: metadataPath,
	}
}

func (f *storeFixture) persistedMetadata(t *testing.T) model.NodeMetadata {
	t.Helper()

	b, err := os.ReadFile(f.metadataPath)
	require.NoError(t, err)

	var metadata model.NodeMetadata
	require.NoError(t, json.Unmarshal(b, &metadata))

	return metadata
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)
	payload := []byte("some opaque chunk bytes")

	stored, err := fx.chunks.StoreChunk("chunk-1", payload, "file-9")
	require.NoError(t, err)
	assert.Equal(t, len(payload), stored)

	data, err := fx.chunks.RetrieveChunk("chunk-1")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	rec, ok := fx.chunks.metadata.GetChunkRecord("chunk-1")
	require.True(t, ok)
	assert.Equal(t, "file-9", rec.FileID)
	assert.Equal(t, int64(len(payload)), rec.Size)
	assert.Equal(t, checksum.Sum(payload), rec.Checksum)
	assert.False(t, rec.Created.IsZero())
}

func TestStoreRejectsOversizedChunk(t *testing.T) {
	fx := newStoreFixture(t, 100)

	_, err := fx.chunks.StoreChunk("big", make([]byte, 200), "file-1")
	require.ErrorIs(t, err, ErrInsufficientSpace)

	// rejected store leaves no partial file behind
	entries, err := os.ReadDir(fx.chunksDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Empty(t, fx.persistedMetadata(t).Chunks)
}

func TestRetrieveMissingChunk(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)

	_, err := fx.chunks.RetrieveChunk("nope")
	require.ErrorIs(t, err, ErrChunkNotFound)
}

func TestRetrieveDetectsCorruption(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)
	payload := []byte("original bytes")

	_, err := fx.chunks.StoreChunk("chunk-1", payload, "file-1")
	require.NoError(t, err)

	// flip the bytes on disk without touching the record
	require.NoError(t, os.WriteFile(fx.chunks.ChunkPath("chunk-1"), []byte("tampered bytes"), 0644))

	data, err := fx.chunks.RetrieveChunk("chunk-1")
	require.ErrorIs(t, err, ErrChunkCorrupted)
	assert.Nil(t, data)
}

func TestRetrieveServesUnrecordedChunkUnverified(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)
	payload := []byte("bytes that predate the metadata file")

	require.NoError(t, os.WriteFile(fx.chunks.ChunkPath("ghost"), payload, 0644))

	data, err := fx.chunks.RetrieveChunk("ghost")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestStoreOverwritesExistingChunk(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)

	_, err := fx.chunks.StoreChunk("chunk-1", []byte("first version"), "file-1")
	require.NoError(t, err)

	second := []byte("second version, different length")
	_, err = fx.chunks.StoreChunk("chunk-1", second, "file-1")
	require.NoError(t, err)

	data, err := fx.chunks.RetrieveChunk("chunk-1")
	require.NoError(t, err)
	assert.Equal(t, second, data)

	stats := fx.capacity.GetStorageStats()
	assert.Equal(t, 1, stats.ChunkCount)
	assert.Equal(t, int64(len(second)), stats.UsedBytes)

	metadata := fx.persistedMetadata(t)
	require.Len(t, metadata.Chunks, 1)
	assert.Equal(t, checksum.Sum(second), metadata.Chunks["chunk-1"].Checksum)
}

func TestChunkExists(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)

	assert.False(t, fx.chunks.ChunkExists("chunk-1"))

	_, err := fx.chunks.StoreChunk("chunk-1", []byte("x"), "file-1")
	require.NoError(t, err)

	assert.True(t, fx.chunks.ChunkExists("chunk-1"))
}

func TestConcurrentStoresAllRecorded(t *testing.T) {
	fx := newStoreFixture(t, 1<<30)

	const writers = 32
	errs := make(chan error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.chunks.StoreChunk(fmt.Sprintf("chunk-%d", i), []byte(fmt.Sprintf("payload %d", i)), "file-1")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// no lost updates: every id survives in the persisted structure
	metadata := fx.persistedMetadata(t)
	assert.Len(t, metadata.Chunks, writers)
	for i := 0; i < writers; i++ {
		assert.Contains(t, metadata.Chunks, fmt.Sprintf("chunk-%d", i))
	}
}
