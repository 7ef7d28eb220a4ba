//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/middleware"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

// Client drives a running tracker over HTTP. With a JWT secret it signs
// tokens per actor; otherwise it sends the development identity headers.
type Client struct {
	baseURL string
	http    *http.Client
	jwt     *middleware.JWTAuthenticator
}

func NewClient(baseURL, jwtSecret string) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	if jwtSecret != "" {
		c.jwt = middleware.NewJWTAuthenticator(jwtSecret, time.Hour)
	}
	return c
}

// Response mirrors the {success, message, data} envelope.
type Response struct {
	Status  int             `json:"-"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Request(ctx context.Context, actor model.Actor, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		if err := c.authorize(req, actor); err != nil {
			return nil, err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("HTTP %d: decode envelope: %w", resp.StatusCode, err)
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request, actor model.Actor) error {
	if c.jwt == nil {
		req.Header.Set("X-User-ID", actor.ID)
		req.Header.Set("X-User-Role", actor.Role.String())
		return nil
	}
	token, _, err := c.jwt.IssueToken(actor)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// JSON makes a request, requires success and decodes data into result.
func (c *Client) JSON(ctx context.Context, actor model.Actor, method, path string, body, result any) error {
	resp, err := c.Request(ctx, actor, method, path, body)
	if err != nil {
		return err
	}
	if resp.Status >= 400 || !resp.Success {
		return fmt.Errorf("HTTP %d: %s", resp.Status, resp.Message)
	}
	if result != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, result)
	}
	return nil
}

// HealthCheck checks if the service is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.Request(ctx, model.Actor{}, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.Status)
	}
	return nil
}

func (c *Client) CreateBatch(ctx context.Context, admin model.Actor, req model.CreateBatchRequest) (*model.Batch, error) {
	var b model.Batch
	if err := c.JSON(ctx, admin, http.MethodPost, "/v1/batches", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) Patch(ctx context.Context, actor model.Actor, batchID, action string, body any) (*Response, error) {
	return c.Request(ctx, actor, http.MethodPatch, "/v1/batches/"+batchID+"/"+action, body)
}
