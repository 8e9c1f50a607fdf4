package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// PanelAPI is the surface of the remote panel the billing core depends on.
// The panel owns the lifecycle of every provisioned server; we only mirror it.
type PanelAPI interface {
	CreateServer(ctx context.Context, req *CreateServerRequest) (*ServerAttributes, error)
	GetServer(ctx context.Context, serverID int64) (*ServerAttributes, error)
	DeleteServer(ctx context.Context, serverID int64) error
	SuspendServer(ctx context.Context, serverID int64) error
	UnsuspendServer(ctx context.Context, serverID int64) error
}

// APIError is a non-2xx response from the panel. A 404 on delete is benign
// ("already absent"); everything else propagates unchanged.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("panel returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("panel returned status %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether the panel said the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// PanelClient calls the panel's application API to manage servers
type PanelClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ PanelAPI = (*PanelClient)(nil)

// NewPanelClient creates a new panel client
func NewPanelClient(baseURL, apiKey string) *PanelClient {
	return &PanelClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateServerRequest is the request to create a server on the panel
type CreateServerRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	EggID       int64         `json:"egg"`
	NestID      int64         `json:"nest,omitempty"`
	NodeID      int64         `json:"node,omitempty"`
	Allocation  int64         `json:"allocation,omitempty"`
	Limits      Limits        `json:"limits"`
	Features    FeatureLimits `json:"feature_limits"`
}

// Limits are the panel-side resource limits of a server
type Limits struct {
	MemoryMB int `json:"memory"`
	SwapMB   int `json:"swap"`
	DiskMB   int `json:"disk"`
	IO       int `json:"io"`
	CPU      int `json:"cpu"`
	Threads  int `json:"threads,omitempty"`
}

// FeatureLimits are the panel-side feature quotas of a server
type FeatureLimits struct {
	Databases   int `json:"databases"`
	Backups     int `json:"backups"`
	Allocations int `json:"allocations"`
}

// ServerAttributes is the panel's view of a server, unwrapped from the
// {"attributes": {...}} response envelope.
type ServerAttributes struct {
	ID          int64         `json:"id"`
	Identifier  string        `json:"identifier"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Suspended   bool          `json:"suspended"`
	Limits      Limits        `json:"limits"`
	Features    FeatureLimits `json:"feature_limits"`
	Node        int64         `json:"node"`
	Allocation  int64         `json:"allocation"`
	Nest        int64         `json:"nest"`
	Egg         int64         `json:"egg"`
}

type serverEnvelope struct {
	Attributes ServerAttributes `json:"attributes"`
}

type errorEnvelope struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateServer creates a new server via the panel application API
func (c *PanelClient) CreateServer(ctx context.Context, req *CreateServerRequest) (*ServerAttributes, error) {
	log.Printf("[PanelClient] Creating server (name: %s, egg: %d)", req.Name, req.EggID)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/application/servers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result serverEnvelope
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	log.Printf("[PanelClient] Server created: %d (identifier: %s)", result.Attributes.ID, result.Attributes.Identifier)
	return &result.Attributes, nil
}

// GetServer fetches server details by panel ID
func (c *PanelClient) GetServer(ctx context.Context, serverID int64) (*ServerAttributes, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL(serverID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result serverEnvelope
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	return &result.Attributes, nil
}

// DeleteServer deletes a server by panel ID. A 404 comes back as an
// *APIError for the caller to classify; it is not retried or hidden here.
func (c *PanelClient) DeleteServer(ctx context.Context, serverID int64) error {
	log.Printf("[PanelClient] Deleting server: %d", serverID)

	if err := c.doAction(ctx, http.MethodDelete, c.serverURL(serverID)); err != nil {
		return err
	}

	log.Printf("[PanelClient] Server deleted: %d", serverID)
	return nil
}

// SuspendServer suspends a server on the panel
func (c *PanelClient) SuspendServer(ctx context.Context, serverID int64) error {
	return c.doAction(ctx, http.MethodPost, c.serverURL(serverID)+"/suspend")
}

// UnsuspendServer lifts a panel-side suspension
func (c *PanelClient) UnsuspendServer(ctx context.Context, serverID int64) error {
	return c.doAction(ctx, http.MethodPost, c.serverURL(serverID)+"/unsuspend")
}

func (c *PanelClient) doAction(ctx context.Context, method, url string) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	return nil
}

func (c *PanelClient) serverURL(serverID int64) string {
	return fmt.Sprintf("%s/api/application/servers/%d", c.baseURL, serverID)
}

func (c *PanelClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func newAPIError(status int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
		return &APIError{StatusCode: status, Detail: env.Errors[0].Detail}
	}
	return &APIError{StatusCode: status}
}
