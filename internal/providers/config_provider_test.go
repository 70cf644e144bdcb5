package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"viewguard/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
webServer:
  host: 127.0.0.1
  port: 8080
logger:
  level: info
  mode: 0644
  dir: /tmp
redis:
  addr: localhost:6379
database:
  driver: sqlite
  dsn: /tmp/viewguard.db
views:
  salt: from-file
  tokenTTL: 5m
antifraud:
  ipPerMinute: 40
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigProvider_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, testYAML)
	t.Setenv("VIEW_SALT", "")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)

	assert.Equal(t, "ViewGuard", conf.AppName)
	assert.Equal(t, path, conf.Path)
	assert.True(t, conf.Debug)
	assert.Equal(t, "from-file", conf.Views.Salt)
	assert.Equal(t, 5*time.Minute, conf.Views.TokenTTL)
	assert.Equal(t, 15*time.Minute, conf.Views.DedupTTL)
	assert.EqualValues(t, 12, conf.Views.GuestGlobalLimit)
	assert.EqualValues(t, 40, conf.Antifraud.IPPerMinute)
	assert.EqualValues(t, 200, conf.Antifraud.IPPerHour)
	assert.True(t, conf.Alerts.Enabled)
	assert.Equal(t, 10, conf.Database.MaxOpenConns)
}

func TestNewConfigProvider_EnvOverrides(t *testing.T) {
	path := writeConfig(t, testYAML)
	t.Setenv("VIEW_SALT", "from-env")
	t.Setenv("VG_REDIS_ADDR", "redis:6380")
	t.Setenv("VG_JWT_SECRET", "jwt")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.Views.Salt)
	assert.Equal(t, "redis:6380", conf.Redis.Addr)
	assert.Equal(t, "jwt", conf.Auth.JWTSecret)
}

func TestNewConfigProvider_MissingSaltStillLoads(t *testing.T) {
	path := writeConfig(t, `
webServer: {host: 127.0.0.1, port: 8080}
logger: {level: info, mode: 0644, dir: /tmp}
redis: {addr: localhost:6379}
database: {driver: sqlite, dsn: /tmp/viewguard.db}
`)
	t.Setenv("VIEW_SALT", "")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)
	assert.Empty(t, conf.Views.Salt)

	_, err = NewCodecProvider(conf)
	assert.Error(t, err)
}

func TestNewConfigProvider_Invalid(t *testing.T) {
	path := writeConfig(t, `
webServer: {host: 127.0.0.1, port: 8080}
logger: {level: loud, mode: 0644, dir: /tmp}
redis: {addr: localhost:6379}
database: {driver: sqlite, dsn: /tmp/viewguard.db}
`)
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	assert.Error(t, err)

	_, err = NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
