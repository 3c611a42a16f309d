package api

import "context"

type userKeyType struct{}

//nolint:gochecknoglobals // this is zero-size sentinel type.
var userKey = userKeyType{}

// WithUser returns a new context whose requests act on behalf of userID.
func WithUser(parent context.Context, userID string) context.Context {
	return context.WithValue(parent, userKey, userID)
}

// UserFromContext extracts the user id set by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(userKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// userFor resolves the effective user: explicit value, then context, then client default.
func (c *Client) userFor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id, ok := UserFromContext(ctx); ok {
		return id
	}
	return c.userID
}
