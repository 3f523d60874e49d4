package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(0), cfg.ReadLimit)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 64, cfg.SendQueue)
	assert.Equal(t, 0, cfg.RateLimit)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, `
mode: debug
port: 9000
log_level: verbose
read_limit: 65536
rate_limit: 20
rate_interval: 2s
allowed_origins:
  - https://app.example.com
ice:
  stun_urls: ["stun:stun.l.google.com:19302"]
  turn_urls: ["turn:turn.example.com:3478?transport=udp"]
  turn_username: user
  turn_credential: secret
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.RateInterval)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	servers, err := cfg.ICEServers()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, servers[0].URLs)
	assert.Equal(t, "user", servers[1].Username)
	assert.Equal(t, "secret", servers[1].Credential)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("REFLECTOR_PORT", "7001")
	t.Setenv("REFLECTOR_LOG_LEVEL", "warn")
	t.Setenv("REFLECTOR_ICE_STUN_URLS", "stun:a.example.com,stun:b.example.com")

	path := writeConfig(t, "port: 9000\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Port)
	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)
	assert.Equal(t, []string{"stun:a.example.com", "stun:b.example.com"}, cfg.ICE.StunURLs)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := writeConfig(t, `
port: 70000
log_level: loud
allowed_origins: ["ftp://nope"]
`)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000 out of range")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), `invalid origin "ftp://nope"`)
}

func TestLoadFile_BrokenYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated\n")
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Mode:            "release",
		Port:            8080,
		LogLevel:        "info",
		WriteTimeout:    time.Second,
		SendQueue:       8,
		ShutdownTimeout: time.Second,
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.RateLimit = 5
	assert.Error(t, cfg.Validate())
	cfg.RateInterval = time.Second
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.SendQueue = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Mode = "chaos"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.AllowedOrigins = []string{"*"}
	assert.NoError(t, cfg.Validate())
}

func TestLevel(t *testing.T) {
	for name, want := range map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"silly":   zerolog.TraceLevel,
		"verbose": zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"error":   zerolog.ErrorLevel,
	} {
		cfg := Config{LogLevel: name}
		got, err := cfg.Level()
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestICEServers(t *testing.T) {
	cfg := validConfig()
	servers, err := cfg.ICEServers()
	require.NoError(t, err)
	assert.Empty(t, servers)

	cfg.ICE.StunURLs = []string{"turn:wrong.example.com"}
	_, err = cfg.ICEServers()
	assert.Error(t, err)

	cfg.ICE.StunURLs = []string{"http://not-ice"}
	_, err = cfg.ICEServers()
	assert.Error(t, err)

	cfg.ICE.StunURLs = nil
	cfg.ICE.TurnURLs = []string{"turns:turn.example.com:5349"}
	_, err = cfg.ICEServers()
	assert.ErrorContains(t, err, "both must be set")

	cfg.ICE.TurnUsername = "u"
	cfg.ICE.TurnCredential = "p"
	servers, err = cfg.ICEServers()
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "u", servers[0].Username)
}
