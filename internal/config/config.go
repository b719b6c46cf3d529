package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// DevHMACSecret signs tokens in offline mode only; online mode refuses it.
const DevHMACSecret = "supersecret-dev-key"

const (
	ErrorDetailVerbose = "verbose"
	ErrorDetailGeneric = "generic"
)

type Config struct {
	Mode     Mode   `toml:"mode"`
	HTTPAddr string `toml:"http_addr"`
	LogLevel string `toml:"log_level"`

	ModelDir     string `toml:"model_dir"`
	ShaperPolicy string `toml:"shaper_policy"` // clamped|raw
	ErrorDetail  string `toml:"error_detail"`  // verbose|generic

	RequestLog bool   `toml:"request_log"`
	DBDriver   string `toml:"db_driver"`
	DBDSN      string `toml:"db_dsn"`

	RedisAddr string        `toml:"redis_addr"` // empty disables the prediction cache
	CacheTTL  time.Duration `toml:"cache_ttl"`

	EnableLocalAuth bool   `toml:"enable_local_auth"`
	RequireAuth     bool   `toml:"require_auth"`
	AuthHMACSecret  string `toml:"auth_hmac_secret"`
	AdminUser       string `toml:"admin_user"`
	AdminPassHash   string `toml:"admin_pass_hash"` // bcrypt; empty disables login

	CORSOrigins []string `toml:"cors_origins"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults(mode Mode) Config {
	if mode == "" {
		mode = ModeOffline
	}
	detail := ErrorDetailVerbose
	if mode == ModeOnline {
		detail = ErrorDetailGeneric
	}
	return Config{
		Mode:            mode,
		HTTPAddr:        ":8000",
		LogLevel:        "info",
		ModelDir:        "./Finance_model",
		ShaperPolicy:    "clamped",
		ErrorDetail:     detail,
		RequestLog:      true,
		DBDriver:        "sqlite",
		CacheTTL:        10 * time.Minute,
		EnableLocalAuth: mode == ModeOffline,
		RequireAuth:     false,
		AuthHMACSecret:  DevHMACSecret,
		AdminUser:       "admin",
		CORSOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// FromEnv builds the config from defaults, then CONFIG_FILE (TOML) if set,
// then individual environment variables. The mode that picks the defaults is
// MODE if set, else the file's mode.
func FromEnv() (Config, error) {
	var data []byte
	mode := Mode(os.Getenv("MODE"))
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return Defaults(mode), fmt.Errorf("reading config: %w", err)
		}
		if mode == "" {
			var head struct {
				Mode Mode `toml:"mode"`
			}
			if err := toml.Unmarshal(data, &head); err != nil {
				return Defaults(mode), fmt.Errorf("parsing config: %w", err)
			}
			mode = head.Mode
		}
	}

	cfg := Defaults(mode)
	if data != nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(c *Config) {
	if v := os.Getenv("MODE"); v != "" {
		c.Mode = Mode(v)
	}
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.ModelDir = envOr("MODEL_DIR", c.ModelDir)
	c.ShaperPolicy = envOr("SHAPER_POLICY", c.ShaperPolicy)
	c.ErrorDetail = envOr("ERROR_DETAIL", c.ErrorDetail)
	c.RequestLog = envBool("REQUEST_LOG", c.RequestLog)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.CacheTTL = envDuration("CACHE_TTL", c.CacheTTL)
	c.EnableLocalAuth = envBool("ENABLE_LOCAL_AUTH", c.EnableLocalAuth)
	c.RequireAuth = envBool("REQUIRE_AUTH", c.RequireAuth)
	c.AuthHMACSecret = envOr("AUTH_HMAC_SECRET", c.AuthHMACSecret)
	c.AdminUser = envOr("ADMIN_USER", c.AdminUser)
	c.AdminPassHash = envOr("ADMIN_PASS_HASH", c.AdminPassHash)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = csv(v)
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.ShaperPolicy {
	case "clamped", "raw":
	default:
		return fmt.Errorf("config: unknown shaper policy %q", c.ShaperPolicy)
	}
	switch c.ErrorDetail {
	case ErrorDetailVerbose, ErrorDetailGeneric:
	default:
		return fmt.Errorf("config: unknown error detail %q", c.ErrorDetail)
	}
	if c.RequireAuth && c.AuthHMACSecret == "" {
		return fmt.Errorf("config: REQUIRE_AUTH needs AUTH_HMAC_SECRET")
	}
	if c.Mode == ModeOnline && (c.AuthHMACSecret == "" || c.AuthHMACSecret == DevHMACSecret) {
		return fmt.Errorf("config: online mode needs a non-default AUTH_HMAC_SECRET")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return d
	}
	return def
}
func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
