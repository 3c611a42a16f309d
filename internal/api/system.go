package api

import (
	"context"
	"net/http"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Health implements GET /health. Unlike the construction probe it is not cached.
func (c *Client) Health(ctx context.Context) (apigen.HealthResponse, error) {
	var out apigen.HealthResponse
	err := c.do(ctx, "health", http.MethodGet, apigen.PathHealth, nil, nil, &out)
	return out, err
}

// ServerStatus implements GET /status.
func (c *Client) ServerStatus(ctx context.Context) (apigen.ServerStatus, error) {
	var out apigen.ServerStatus
	err := c.do(ctx, "server status", http.MethodGet, apigen.PathStatus, nil, nil, &out)
	return out, err
}

// SystemInfo implements GET /system/info.
func (c *Client) SystemInfo(ctx context.Context) (apigen.SystemInfo, error) {
	var out apigen.SystemInfo
	err := c.do(ctx, "system info", http.MethodGet, apigen.PathSystemInfo, nil, nil, &out)
	return out, err
}

// SystemUsage implements GET /system/usage.
func (c *Client) SystemUsage(ctx context.Context) (apigen.SystemUsage, error) {
	var out apigen.SystemUsage
	err := c.do(ctx, "system usage", http.MethodGet, apigen.PathSystemUsage, nil, nil, &out)
	return out, err
}

// TopProcesses implements GET /system/processes.
func (c *Client) TopProcesses(ctx context.Context, params apigen.ProcessesParams) (apigen.ProcessList, error) {
	var out apigen.ProcessList
	q, err := params.Query()
	if err != nil {
		return out, c.requestFailed(ctx, "processes", err)
	}
	err = c.do(ctx, "processes", http.MethodGet, apigen.PathSystemProcesses, q, nil, &out)
	return out, err
}
