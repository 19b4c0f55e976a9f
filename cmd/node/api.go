package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	core "github.com/pjas/storagenode/core/node"
	"github.com/pjas/storagenode/core/model"
)

// metadataLengthHeader declares the byte length of the JSON metadata block
// at the head of an upload body; the rest of the body is the raw payload.
const metadataLengthHeader = "X-Metadata-Length"

type NodeAPI struct {
	node *core.Node
}

func NewNodeAPI(node *core.Node) *NodeAPI {
	return &NodeAPI{
		node: node,
	}
}

// Handler routes the node protocol plus the metrics endpoint. Anything else
// falls through to a 404.
func (a *NodeAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", a.Status)
	mux.HandleFunc("/chunk", a.Chunk)
	mux.Handle("/metrics", promhttp.HandlerFor(a.node.Registry, promhttp.HandlerOpts{}))

	return mux
}

type statusResponse struct {
	NodeID  string             `json:"node_id"`
	Status  string             `json:"status"`
	Storage model.StorageStats `json:"storage"`
}

func (a *NodeAPI) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		NodeID:  a.node.ID,
		Status:  "online",
		Storage: a.node.GetStorageStats(),
	})
}

func (a *NodeAPI) Chunk(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.downloadChunk(w, r)
	case http.MethodPost:
		a.uploadChunk(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (a *NodeAPI) downloadChunk(w http.ResponseWriter, r *http.Request) {
	chunkID := r.URL.Query().Get("id")
	if chunkID == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)
		return
	}
	if !validChunkID(chunkID) {
		http.Error(w, "invalid id parameter", http.StatusBadRequest)
		return
	}

	log.Infow("http", "event", "NodeAPI.DownloadChunk", "chunkID", chunkID)

	data, err := a.node.RetrieveChunk(chunkID)
	if err != nil {
		if errors.Is(err, core.ErrChunkNotFound) || errors.Is(err, core.ErrChunkCorrupted) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

type uploadMetadata struct {
	ChunkID string `json:"chunk_id"`
	FileID  string `json:"file_id"`
}

type uploadResponse struct {
	Success     bool   `json:"success"`
	StoredBytes int    `json:"stored_bytes"`
	Error       string `json:"error,omitempty"`
}

func (a *NodeAPI) uploadChunk(w http.ResponseWriter, r *http.Request) {
	metaLen, err := strconv.Atoi(r.Header.Get(metadataLengthHeader))
	if err != nil || metaLen <= 0 {
		uploadError(w, "missing or invalid "+metadataLengthHeader+" header")
		return
	}

	metaBlock := make([]byte, metaLen)
	if _, err := io.ReadFull(r.Body, metaBlock); err != nil {
		uploadError(w, "short metadata block: "+err.Error())
		return
	}

	var meta uploadMetadata
	if err := json.Unmarshal(metaBlock, &meta); err != nil {
		uploadError(w, "bad metadata block: "+err.Error())
		return
	}
	if !validChunkID(meta.ChunkID) {
		uploadError(w, "invalid chunk_id")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		uploadError(w, "reading payload: "+err.Error())
		return
	}

	log.Infow("http", "event", "NodeAPI.UploadChunk", "chunkID", meta.ChunkID, "fileID", meta.FileID, "size", len(payload))

	stored, err := a.node.StoreChunk(meta.ChunkID, payload, meta.FileID)
	if err != nil {
		uploadError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		StoredBytes: stored,
	})
}

// validChunkID keeps caller supplied ids usable as filename stems.
func validChunkID(chunkID string) bool {
	if chunkID == "" || strings.Contains(chunkID, "..") {
		return false
	}

	return !strings.ContainsAny(chunkID, `/\`)
}

func uploadError(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusInternalServerError, uploadResponse{
		Success: false,
		Error:   reason,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorw("http", "event", "write response failed", "error", err)
	}
}
