package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomTags(t *testing.T) {
	assert.NoError(t, Var("dark", "theme"))
	assert.NoError(t, Var("system", "theme"))
	assert.Error(t, Var("neon", "theme"))

	assert.NoError(t, Var("de", "language"))
	assert.NoError(t, Var("en", "language"))
	assert.Error(t, Var("fr", "language"))

	assert.NoError(t, Var("ws://localhost:8000/ws", "ws_url"))
	assert.NoError(t, Var("wss://cleaner.example.com/ws", "ws_url"))
	assert.Error(t, Var("http://localhost:8000/ws", "ws_url"))
	assert.Error(t, Var("ws:///ws", "ws_url"))
}

func TestStruct(t *testing.T) {
	type prefs struct {
		Theme string `validate:"theme"`
		Lang  string `validate:"omitempty,language"`
	}
	assert.NoError(t, Struct(prefs{Theme: "light"}))
	assert.Error(t, Struct(prefs{Theme: "light", Lang: "xx"}))
}
