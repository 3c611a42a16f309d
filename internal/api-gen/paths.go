package apigen

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"
)

// Endpoint paths relative to the API base URL.
const (
	PathHealth          = "/health"
	PathStatus          = "/status"
	PathSystemInfo      = "/system/info"
	PathSystemUsage     = "/system/usage"
	PathSystemProcesses = "/system/processes"
	PathScanStart       = "/scan/start"
	PathScanHistory     = "/scan/history"
	PathCleanStart      = "/clean/start"
	PathCleanHistory    = "/clean/history"
	PathAIChat          = "/ai/chat"
	PathAIModels        = "/ai/models"
	PathSettingsUpdate  = "/settings/update"
)

// ProcessesParams defines parameters for GET /system/processes.
type ProcessesParams struct {
	SortBy *string `form:"sort_by,omitempty" json:"sort_by,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// ScanHistoryParams defines parameters for GET /scan/history.
type ScanHistoryParams struct {
	UserID *string `form:"user_id,omitempty" json:"user_id,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// CleanHistoryParams defines parameters for GET /clean/history.
type CleanHistoryParams struct {
	ScanID *int64 `form:"scan_id,omitempty" json:"scan_id,omitempty"`
	Limit  *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// ScanStatusPath returns /scan/status/{scan_id}.
func ScanStatusPath(scanID int64) (string, error) {
	return pathWithParam("/scan/status/%s", "scan_id", scanID)
}

// ScanResultsPath returns /scan/results/{scan_id}.
func ScanResultsPath(scanID int64) (string, error) {
	return pathWithParam("/scan/results/%s", "scan_id", scanID)
}

// SettingsPath returns /settings/{user_id}.
func SettingsPath(userID string) (string, error) {
	return pathWithParam("/settings/%s", "user_id", userID)
}

// Query encodes the parameters as a query string.
func (p ProcessesParams) Query() (url.Values, error) {
	q := url.Values{}
	if p.SortBy != nil {
		if err := addQueryParam(q, "sort_by", *p.SortBy); err != nil {
			return nil, err
		}
	}
	if p.Limit != nil {
		if err := addQueryParam(q, "limit", *p.Limit); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Query encodes the parameters as a query string.
func (p ScanHistoryParams) Query() (url.Values, error) {
	q := url.Values{}
	if p.UserID != nil {
		if err := addQueryParam(q, "user_id", *p.UserID); err != nil {
			return nil, err
		}
	}
	if p.Limit != nil {
		if err := addQueryParam(q, "limit", *p.Limit); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Query encodes the parameters as a query string.
func (p CleanHistoryParams) Query() (url.Values, error) {
	q := url.Values{}
	if p.ScanID != nil {
		if err := addQueryParam(q, "scan_id", *p.ScanID); err != nil {
			return nil, err
		}
	}
	if p.Limit != nil {
		if err := addQueryParam(q, "limit", *p.Limit); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func pathWithParam(format, name string, value any) (string, error) {
	styled, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", fmt.Errorf("path parameter %s: %w", name, err)
	}
	return fmt.Sprintf(format, styled), nil
}

func addQueryParam(q url.Values, name string, value any) error {
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return fmt.Errorf("query parameter %s: %w", name, err)
	}
	parsed, err := url.ParseQuery(frag)
	if err != nil {
		return fmt.Errorf("query parameter %s: %w", name, err)
	}
	for k, vs := range parsed {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return nil
}
