package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/config"
	"github.com/OpenTrons/opentrons-sub006/internal/hcl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*config.Config, bool, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(args, out, hcl.NewLoader())
	return cfg, exit, out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lpc.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_Help(t *testing.T) {
	cfg, exit, out, err := parse(t, "-h")
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out, "Usage:")
}

func TestParse_NoArgumentsPrintsUsage(t *testing.T) {
	_, exit, out, err := parse(t)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out, "PROTOCOL_PATH")
}

func TestParse_FlagsOnly(t *testing.T) {
	cfg, exit, _, err := parse(t,
		"--run-id", "run-7",
		"--jog-step", "0.5",
		"--jog-timeout", "3s",
		"--store", "sqlite",
		"--store-path", "offsets.db",
		"--log-level", "DEBUG",
		"protocol.json",
	)
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "protocol.json", cfg.ProtocolPath)
	assert.Equal(t, "run-7", cfg.Robot.RunID)
	assert.Equal(t, 0.5, cfg.Flow.JogStep)
	assert.Equal(t, 3*time.Second, cfg.Flow.JogTimeout)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.Default().Robot.URL, cfg.Robot.URL)
}

func TestParse_FlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, `protocol = "/data/protocol.json"

robot {
  url    = "http://10.0.0.5:31950"
  run_id = "from-file"
}

log {
  format = "json"
}`)

	cfg, _, _, err := parse(t, "--config", path, "--run-id", "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "/data/protocol.json", cfg.ProtocolPath)
	assert.Equal(t, "http://10.0.0.5:31950", cfg.Robot.URL)
	assert.Equal(t, "from-flag", cfg.Robot.RunID)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset flags must not override file or defaults")
}

func TestParse_PositionalOverridesProtocolFlag(t *testing.T) {
	cfg, _, _, err := parse(t, "-p", "a.json", "--run-id", "r", "b.json")
	require.NoError(t, err)
	assert.Equal(t, "b.json", cfg.ProtocolPath)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag"}, "flag provided but not defined"},
		{"missing run id", []string{"protocol.json"}, "robot run id is required"},
		{"bad log format", []string{"--run-id", "r", "--log-format", "xml", "protocol.json"}, "invalid log-format"},
		{"bad log level", []string{"--run-id", "r", "--log-level", "loud", "protocol.json"}, "invalid log-level"},
		{"bad duration", []string{"--jog-timeout", "soon", "protocol.json"}, "invalid value"},
		{"two protocols", []string{"--run-id", "r", "a.json", "b.json"}, "at most one protocol path"},
		{"missing config", []string{"--config", "/nonexistent/lpc.hcl"}, "failed to load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, exit, _, err := parse(t, tt.args...)
			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.wantErr)
		})
	}
}
