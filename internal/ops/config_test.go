package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "autotrader.json", `{
		"Execution": {"Host": "10.0.0.1", "Port": 12345},
		"Information": {"Type": "udp", "Name": "239.255.1.1:12346"},
		"TeamName": "alpha",
		"Secret": "s3cret",
		"Risk": {"lotSize": 5, "positionLimit": 50, "unhedgedPositionLimit": 20, "tickSize": 100},
		"Recorder": {"enabled": true, "dir": "/tmp/wal"}
	}`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:12345", cfg.Execution.Addr())
	assert.Equal(t, "239.255.1.1:12346", cfg.Information.Name)
	assert.Equal(t, "alpha", cfg.TeamName)
	assert.Equal(t, schema.Volume(5), cfg.Risk.LotSize)
	assert.Equal(t, schema.Volume(20), cfg.Risk.UnhedgedPositionLimit)
	assert.True(t, cfg.Recorder.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDefaultsKeepRiskConstants(t *testing.T) {
	path := writeFile(t, "autotrader.json", `{"TeamName": "alpha"}`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, schema.Volume(10), cfg.Risk.LotSize)
	assert.Equal(t, schema.Volume(100), cfg.Risk.PositionLimit)
	assert.Equal(t, schema.Volume(10), cfg.Risk.UnhedgedPositionLimit)
	assert.Equal(t, schema.Price(100), cfg.Risk.TickSize)
}

func TestEnvOverrides(t *testing.T) {
	env := writeFile(t, ".env", "AUTOTRADER_SECRET=from-env-file\n")
	t.Setenv(EnvExecHost, "exchange.local")
	t.Setenv(EnvExecPort, "4000")
	t.Setenv(EnvTeamName, "beta")
	t.Setenv(EnvLogLevel, "debug")
	t.Cleanup(func() { _ = os.Unsetenv(EnvSecret) })

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "exchange.local:4000", cfg.Execution.Addr())
	assert.Equal(t, "beta", cfg.TeamName)
	assert.Equal(t, "from-env-file", cfg.Secret)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv(EnvExecPort, "not-a-port")
	_, err = Load("", env)
	assert.True(t, errors.Is(err, exception.ErrConfigInvalid))
}

func TestValidate(t *testing.T) {
	long := strings.Repeat("x", 51)
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ok", func(*Config) {}, nil},
		{"team name too long", func(c *Config) { c.TeamName = long }, exception.ErrConfigInvalid},
		{"secret too long", func(c *Config) { c.Secret = long }, exception.ErrConfigInvalid},
		{"tcp information", func(c *Config) { c.Information.Type = "tcp" }, exception.ErrConfigUnsupported},
		{"empty host", func(c *Config) { c.Execution.Host = "" }, exception.ErrConfigInvalid},
		{"bad port", func(c *Config) { c.Execution.Port = 70000 }, exception.ErrConfigInvalid},
		{"bad risk", func(c *Config) { c.Risk.LotSize = 0 }, exception.ErrConfigInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want))
		})
	}
}
