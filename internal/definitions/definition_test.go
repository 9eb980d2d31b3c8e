package definitions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/errors"
)

const minimal = `{
  "destinations": [{"name": "audit", "type": "log"}],
  "routers": [{"name": "all", "type": "pass_through", "routes": ["audit"]}]
}`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Nil(t, def.MatchAll)
	require.Len(t, def.Destinations, 1)
	assert.Equal(t, TypeLog, def.Destinations[0].Type)
	require.Len(t, def.Routers, 1)
	assert.Equal(t, []string{"audit"}, def.Routers[0].Routes)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"routers": [`},
		{"unknown field", `{"routers": [{"name": "a", "type": "pass_through"}], "extra": 1}`},
		{"no routers", `{"routers": []}`},
		{"router without name", `{"routers": [{"type": "pass_through"}]}`},
		{"unknown router type", `{"routers": [{"name": "a", "type": "teleport"}]}`},
		{"bad correlation", `{"routers": [{"name": "a", "type": "pass_through", "options": {"correlation": "SOMETIMES"}}]}`},
		{"negative batch", `{"routers": [{"name": "a", "type": "round_robin", "options": {"batch_size": -1}}]}`},
		{"duplicate router", `{"routers": [{"name": "a", "type": "pass_through"}, {"name": "a", "type": "chaining"}]}`},
		{"duplicate destination", `{"destinations": [{"name": "d", "type": "log"}, {"name": "d", "type": "log"}],
		  "routers": [{"name": "a", "type": "pass_through"}]}`},
		{"zero rate limit", `{"destinations": [{"name": "d", "type": "log", "rate_limit": {"requests_per_second": 0}}],
		  "routers": [{"name": "a", "type": "pass_through"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, def.Routers, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{`"5s"`, 5 * time.Second, false},
		{`"1m30s"`, 90 * time.Second, false},
		{`1500`, 1500 * time.Millisecond, false},
		{`null`, 0, false},
		{`"soon"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}
}
