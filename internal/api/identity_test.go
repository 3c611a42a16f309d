package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithUserAndFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ctx      context.Context
		expectID string
		expectOK bool
	}{
		{name: "user set", ctx: WithUser(context.Background(), "alice"), expectID: "alice", expectOK: true},
		{name: "empty user", ctx: WithUser(context.Background(), ""), expectOK: false},
		{name: "no user", ctx: context.Background(), expectOK: false},
		{name: "wrong type", ctx: context.WithValue(context.Background(), userKey, 42), expectOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := UserFromContext(tt.ctx)
			assert.Equal(t, tt.expectOK, ok)
			if ok {
				assert.Equal(t, tt.expectID, id)
			}
		})
	}
}

func TestUserFor_Precedence(t *testing.T) {
	c := &Client{userID: "default"}
	ctx := WithUser(context.Background(), "ctx-user")

	assert.Equal(t, "explicit", c.userFor(ctx, "explicit"))
	assert.Equal(t, "ctx-user", c.userFor(ctx, ""))
	assert.Equal(t, "default", c.userFor(context.Background(), ""))
}
