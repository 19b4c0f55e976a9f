package model

import "time"

// ChunkRecord describes one chunk persisted on this node. Records are
// written together with the chunk bytes and never mutated afterwards; a
// repeat store under the same id replaces both.
type ChunkRecord struct {
	FileID   string    `json:"file_id"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Checksum string    `json:"checksum"` // hex SHA-256 of the payload at write time
}
