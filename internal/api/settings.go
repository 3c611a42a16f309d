package api

import (
	"context"
	"net/http"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// GetSettings implements GET /settings/{user_id}. An empty userID resolves like any other request.
func (c *Client) GetSettings(ctx context.Context, userID string) (apigen.Settings, error) {
	var out apigen.Settings
	path, err := apigen.SettingsPath(c.userFor(ctx, userID))
	if err != nil {
		return out, c.requestFailed(ctx, "get settings", err)
	}
	err = c.do(ctx, "get settings", http.MethodGet, path, nil, nil, &out)
	return out, err
}

// UpdateSettings implements POST /settings/update.
func (c *Client) UpdateSettings(ctx context.Context, s apigen.Settings) (apigen.SettingsUpdateResponse, error) {
	var out apigen.SettingsUpdateResponse
	s.UserID = c.userFor(ctx, s.UserID)
	err := c.do(ctx, "update settings", http.MethodPost, apigen.PathSettingsUpdate, nil, s, &out)
	return out, err
}
