package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pjas/storagenode/core/model"
	coordinatorRPC "github.com/pjas/storagenode/rpc/coordinator"
)

var ErrCoordinatorUnreachable = errors.New("coordinator unreachable")

const (
	registerTimeout  = 10 * time.Second
	heartbeatTimeout = 5 * time.Second
)

// Client talks to the coordinator HTTP API. All calls are bounded by their
// own timeout so a hung coordinator can never stall a caller for long.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Register announces the node to the coordinator once, at startup.
func (c *Client) Register(ctx context.Context, nodeID, address string, stats model.StorageStats, version string) error {
	req := coordinatorRPC.RegisterRequest{
		NodeID:       nodeID,
		Address:      address,
		StorageStats: stats,
		Status:       "online",
		Version:      version,
	}

	return c.post(ctx, "/nodes/register", req, registerTimeout)
}

// Heartbeat pushes a capacity snapshot to the coordinator.
func (c *Client) Heartbeat(ctx context.Context, nodeID string, stats model.StorageStats) error {
	req := coordinatorRPC.HeartbeatRequest{
		NodeID:       nodeID,
		StorageStats: stats,
		Timestamp:    time.Now().UTC(),
	}

	return c.post(ctx, "/nodes/heartbeat", req, heartbeatTimeout)
}

func (c *Client) post(ctx context.Context, path string, body any, timeout time.Duration) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCoordinatorUnreachable, err)
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", ErrCoordinatorUnreachable, resp.StatusCode)
	}

	return nil
}
