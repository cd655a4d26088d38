package config

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
)

// loadEnv reads .env only outside production (in containers/prod config
// comes from the environment alone).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		f, err := os.Open(filepath.Join(dir, ".env"))
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func loadEnvFrom(f *os.File) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL            string `yaml:"database_url"`
	MaxConnections int    `yaml:"db_max_connections"`
}

// RedisConfig holds Redis (sign-in throttle, ticket redemption marks).
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig carries the signing secrets. Member and administrator bearer
// secrets are independent: rotating one invalidates every outstanding token
// of that kind without touching the other (emergency revocation lever). The
// realtime ticket secret is a third, unrelated value so the two token
// families never interchange.
type AuthConfig struct {
	MemberTokenSecret    string `yaml:"member_token_secret"`
	AdminTokenSecret     string `yaml:"admin_token_secret"`
	RealtimeTicketSecret string `yaml:"realtime_ticket_secret"`
	CookieSecure         bool   `yaml:"cookie_secure"`
}

// Config holds application settings.
// Priority: environment variables > YAML file > defaults.
type Config struct {
	ServerAddr   string        `yaml:"server_addr"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
	IdleTimeout  time.Duration `yaml:"-"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`

	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
	MaxWSConnections   int    `yaml:"max_ws_connections"`
}

func defaults() *Config {
	return &Config{
		ServerAddr:         ":8080",
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		Database:           DatabaseConfig{MaxConnections: 16},
		CORSAllowedOrigins: "*",
		MaxWSConnections:   10000,
	}
}

// Load builds the configuration: defaults, then config/app.yaml if present,
// then environment overrides.
func Load() *Config {
	loadEnv()
	cfg := defaults()

	if data, err := os.ReadFile("config/app.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			logger.Errorf("parse config/app.yaml: %v", err)
		}
	}

	applyEnvString(&cfg.ServerAddr, "SERVER_ADDR")
	applyEnvString(&cfg.Database.URL, "DATABASE_URL")
	applyEnvInt(&cfg.Database.MaxConnections, "DB_MAX_CONNECTIONS")
	applyEnvString(&cfg.Redis.URL, "REDIS_URL")
	applyEnvString(&cfg.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
	applyEnvInt(&cfg.MaxWSConnections, "MAX_WS_CONNECTIONS")
	applyEnvString(&cfg.Auth.MemberTokenSecret, "MEMBER_TOKEN_SECRET")
	applyEnvString(&cfg.Auth.AdminTokenSecret, "ADMIN_TOKEN_SECRET")
	applyEnvString(&cfg.Auth.RealtimeTicketSecret, "REALTIME_TICKET_SECRET")
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.Auth.CookieSecure = v == "1" || strings.EqualFold(v, "true")
	}

	cfg.Auth.MemberTokenSecret = ensureSecret(cfg.Auth.MemberTokenSecret, "MEMBER_TOKEN_SECRET")
	cfg.Auth.AdminTokenSecret = ensureSecret(cfg.Auth.AdminTokenSecret, "ADMIN_TOKEN_SECRET")
	cfg.Auth.RealtimeTicketSecret = ensureSecret(cfg.Auth.RealtimeTicketSecret, "REALTIME_TICKET_SECRET")

	return cfg
}

func applyEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// ensureSecret falls back to a random per-process value when a secret is not
// configured: sign-in still works, but every session dies on restart. Loud
// warning so nobody ships that to production.
func ensureSecret(val, name string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Errorf("generate fallback %s: %v", name, err)
		os.Exit(1)
	}
	logger.Errorf("%s is not set; using a random per-process secret (all tokens invalid after restart)", name)
	return hex.EncodeToString(buf)
}

// DatabaseURL returns the configured Postgres URL.
func (c *Config) DatabaseURL() string {
	return c.Database.URL
}

// DBMaxConnections returns the pgx pool size.
func (c *Config) DBMaxConnections() int {
	if c.Database.MaxConnections <= 0 {
		return 16
	}
	return c.Database.MaxConnections
}
