package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjas/storagenode/core/model"
	coordinatorRPC "github.com/pjas/storagenode/rpc/coordinator"
)

func testStats() model.StorageStats {
	return model.StorageStats{
		UsedBytes:      3000,
		AllocatedBytes: 1 << 30,
		FreeBytes:      1<<30 - 3000,
		ChunkCount:     2,
		UsagePercent:   float64(3000) / float64(1<<30) * 100,
	}
}

func TestRegisterSendsNodeAnnouncement(t *testing.T) {
	var gotPath string
	var gotBody coordinatorRPC.RegisterRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Register(context.Background(), "node-1", "10.0.0.5:8420", testStats(), "0.1.0")
	require.NoError(t, err)

	assert.Equal(t, "/nodes/register", gotPath)
	assert.Equal(t, "node-1", gotBody.NodeID)
	assert.Equal(t, "10.0.0.5:8420", gotBody.Address)
	assert.Equal(t, "online", gotBody.Status)
	assert.Equal(t, "0.1.0", gotBody.Version)
	assert.Equal(t, testStats(), gotBody.StorageStats)
}

func TestHeartbeatSendsCapacitySnapshot(t *testing.T) {
	var gotPath string
	var gotBody coordinatorRPC.HeartbeatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Heartbeat(context.Background(), "node-1", testStats())
	require.NoError(t, err)

	assert.Equal(t, "/nodes/heartbeat", gotPath)
	assert.Equal(t, "node-1", gotBody.NodeID)
	assert.Equal(t, testStats(), gotBody.StorageStats)
	assert.False(t, gotBody.Timestamp.IsZero())
}

func TestNonSuccessStatusIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Heartbeat(context.Background(), "node-1", testStats())
	require.ErrorIs(t, err, ErrCoordinatorUnreachable)
}

func TestDeadCoordinatorIsUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	err := client.Register(context.Background(), "node-1", "addr", testStats(), "0.1.0")
	require.ErrorIs(t, err, ErrCoordinatorUnreachable)
}

func TestBaseURLTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	require.NoError(t, client.Heartbeat(context.Background(), "node-1", testStats()))
	assert.Equal(t, "/nodes/heartbeat", gotPath)
}
