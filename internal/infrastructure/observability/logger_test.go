package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "nba-api", "production")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	LoggerFromContext(context.Background()).Info().Str("hcp_id", "hcp-1").Msg("generated")
	GetLogger().Debug().Msg("suppressed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "nba-api", entry["service"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "hcp-1", entry["hcp_id"])
	assert.Equal(t, "generated", entry["message"])
	assert.NotContains(t, entry, "trace_id")
}

func TestInitLogger_DevelopmentEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "nba-api", "development")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	GetLogger().Debug().Msg("visible")

	assert.Contains(t, buf.String(), "visible")
}
