package api

import (
	"context"
	"net/http"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// StartScan implements POST /scan/start. An empty UserID is filled from the context or client default.
func (c *Client) StartScan(ctx context.Context, req apigen.ScanRequest) (apigen.ScanResponse, error) {
	var out apigen.ScanResponse
	req.UserID = c.userFor(ctx, req.UserID)
	err := c.do(ctx, "start scan", http.MethodPost, apigen.PathScanStart, nil, req, &out)
	return out, err
}

// GetScanStatus implements GET /scan/status/{scan_id}.
func (c *Client) GetScanStatus(ctx context.Context, scanID int64) (apigen.ScanStatus, error) {
	var out apigen.ScanStatus
	path, err := apigen.ScanStatusPath(scanID)
	if err != nil {
		return out, c.requestFailed(ctx, "scan status", err)
	}
	err = c.do(ctx, "scan status", http.MethodGet, path, nil, nil, &out)
	return out, err
}

// GetScanResults implements GET /scan/results/{scan_id}.
func (c *Client) GetScanResults(ctx context.Context, scanID int64) (apigen.ScanResults, error) {
	var out apigen.ScanResults
	path, err := apigen.ScanResultsPath(scanID)
	if err != nil {
		return out, c.requestFailed(ctx, "scan results", err)
	}
	err = c.do(ctx, "scan results", http.MethodGet, path, nil, nil, &out)
	return out, err
}

// ScanHistory implements GET /scan/history for the effective user.
func (c *Client) ScanHistory(ctx context.Context, limit int) (apigen.ScanHistory, error) {
	var out apigen.ScanHistory
	user := c.userFor(ctx, "")
	params := apigen.ScanHistoryParams{UserID: &user}
	if limit > 0 {
		params.Limit = &limit
	}
	q, err := params.Query()
	if err != nil {
		return out, c.requestFailed(ctx, "scan history", err)
	}
	err = c.do(ctx, "scan history", http.MethodGet, apigen.PathScanHistory, q, nil, &out)
	return out, err
}

// StartCleaning implements POST /clean/start.
func (c *Client) StartCleaning(ctx context.Context, req apigen.CleanRequest) (apigen.CleanResponse, error) {
	var out apigen.CleanResponse
	req.UserID = c.userFor(ctx, req.UserID)
	err := c.do(ctx, "start cleaning", http.MethodPost, apigen.PathCleanStart, nil, req, &out)
	return out, err
}

// CleaningHistory implements GET /clean/history. scanID <= 0 lists every run.
func (c *Client) CleaningHistory(ctx context.Context, scanID int64, limit int) (apigen.CleaningHistory, error) {
	var out apigen.CleaningHistory
	params := apigen.CleanHistoryParams{}
	if scanID > 0 {
		params.ScanID = &scanID
	}
	if limit > 0 {
		params.Limit = &limit
	}
	q, err := params.Query()
	if err != nil {
		return out, c.requestFailed(ctx, "cleaning history", err)
	}
	err = c.do(ctx, "cleaning history", http.MethodGet, apigen.PathCleanHistory, q, nil, &out)
	return out, err
}
