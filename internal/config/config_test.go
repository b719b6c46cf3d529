package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MODE", "CONFIG_FILE", "HTTP_ADDR", "LOG_LEVEL", "MODEL_DIR", "SHAPER_POLICY",
		"ERROR_DETAIL", "REQUEST_LOG", "DB_DRIVER", "DB_DSN", "REDIS_ADDR", "CACHE_TTL",
		"ENABLE_LOCAL_AUTH", "REQUIRE_AUTH", "AUTH_HMAC_SECRET", "ADMIN_USER",
		"ADMIN_PASS_HASH", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "./Finance_model", cfg.ModelDir)
	assert.Equal(t, "clamped", cfg.ShaperPolicy)
	assert.Equal(t, ErrorDetailVerbose, cfg.ErrorDetail)
	assert.True(t, cfg.EnableLocalAuth)
	assert.Empty(t, cfg.AdminPassHash)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnv_OnlineMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "prod-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ErrorDetailGeneric, cfg.ErrorDetail)
	assert.False(t, cfg.EnableLocalAuth)
}

func TestFromEnv_OnlineRejectsDevSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODE", "online")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "AUTH_HMAC_SECRET")

	t.Setenv("AUTH_HMAC_SECRET", DevHMACSecret)
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_FileMode(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "online.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "online"
auth_hmac_secret = "from-file"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.Equal(t, ErrorDetailGeneric, cfg.ErrorDetail)
	assert.False(t, cfg.EnableLocalAuth)

	// explicit file values still win over the mode defaults
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "online"
auth_hmac_secret = "from-file"
error_detail = "verbose"
`), 0o600))
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ErrorDetailVerbose, cfg.ErrorDetail)

	// MODE in the environment picks the defaults over the file's mode
	t.Setenv("MODE", "offline")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "online"`), 0o600))
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ErrorDetailVerbose, cfg.ErrorDetail)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SHAPER_POLICY", "raw")
	t.Setenv("REQUEST_LOG", "false")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "raw", cfg.ShaperPolicy)
	assert.False(t, cfg.RequestLog)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestFromEnv_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "predictd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":7000"
model_dir = "/srv/model"
shaper_policy = "raw"
db_driver = "postgres"
cors_origins = ["https://app.example"]
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7100")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.HTTPAddr, "env wins over file")
	assert.Equal(t, "/srv/model", cfg.ModelDir)
	assert.Equal(t, "raw", cfg.ShaperPolicy)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSOrigins)
}

func TestFromEnv_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr = "), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults(ModeOffline)
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ShaperPolicy = "loose"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Mode = "hybrid"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.ErrorDetail = "chatty"
	assert.Error(t, bad.Validate())

	bad = Defaults(ModeOnline)
	assert.Error(t, bad.Validate())
	bad.AuthHMACSecret = "prod-secret"
	assert.NoError(t, bad.Validate())

	bad = cfg
	bad.RequireAuth = true
	bad.AuthHMACSecret = ""
	assert.Error(t, bad.Validate())
}
