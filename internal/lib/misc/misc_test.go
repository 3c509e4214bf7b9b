package misc

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimalHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, true)

	logger.With("pool", "abc").Warn("vault missing", "balance", 0)
	Debugf(logger, "hidden %d", 1)
	Infof(logger, "loaded %d receipts", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `WARN: vault missing {"balance":"0","pool":"abc"}`, lines[0])
	assert.Equal(t, "loaded 3 receipts", strings.TrimSpace(lines[1]))
}

func TestJSONLoggerKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, false)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"severity":"INFO"`)
}

func TestSecrets(t *testing.T) {
	t.Setenv("SPLSTAKE_TEST_KEY_B", "envval")
	SetSecret("SPLSTAKE_TEST_KEY_A", "secretval")
	SetSecret("SPLSTAKE_TEST_KEY_B", "shadowed")

	assert.Equal(t, "secretval", GetSecret("SPLSTAKE_TEST_KEY_A"))
	assert.Equal(t, "envval", GetSecret("SPLSTAKE_TEST_KEY_B"))
	assert.Equal(t, []string{"SPLSTAKE_TEST_KEY_A", "SPLSTAKE_TEST_KEY_B"}, SecretKeysWithPrefix("SPLSTAKE_TEST_KEY_"))
}
