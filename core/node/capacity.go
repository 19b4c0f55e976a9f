package node

import (
	"os"
	"strings"

	"github.com/pjas/storagenode/core/model"
)

// CapacityService computes the node's capacity state from the chunk
// directory itself. The scan is authoritative over any cached counter so
// metadata drift can never hide real usage.
type CapacityService struct {
	chunksDir      string
	allocatedBytes int64
}

func NewCapacityService(chunksDir string, allocatedBytes int64) *CapacityService {
	return &CapacityService{
		chunksDir:      chunksDir,
		allocatedBytes: allocatedBytes,
	}
}

// GetStorageStats sums the sizes of all chunk files. A missing or empty
// chunk directory counts as zero usage. Cost is O(chunk count); it runs
// per request, not per byte.
func (c *CapacityService) GetStorageStats() model.StorageStats {
	var used int64
	var count int

	entries, err := os.ReadDir(c.chunksDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), chunkFileSuffix) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}

			used += info.Size()
			count++
		}
	}

	return model.StorageStats{
		UsedBytes:      used,
		AllocatedBytes: c.allocatedBytes,
		FreeBytes:      c.allocatedBytes - used,
		ChunkCount:     count,
		UsagePercent:   float64(used) / float64(c.allocatedBytes) * 100,
	}
}
