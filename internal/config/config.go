// Package config carrega a configuração do contactd: padrões, arquivo YAML
// opcional, .env e variáveis de ambiente, nessa ordem.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	// MAIL_TIMEZONE precisa resolver mesmo em imagens sem zoneinfo.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

// ErrInvalid marca qualquer erro de validação da configuração.
var ErrInvalid = errors.New("invalid config")

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Stats     StatsConfig     `yaml:"stats"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Mail      MailConfig      `yaml:"mail"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listenAddr"`
	AllowOrigin string `yaml:"allowOrigin"`
	// 0 desliga o limite de concorrência.
	ConcurrencyMax     int           `yaml:"concurrencyMax"`
	ConcurrencyTimeout time.Duration `yaml:"concurrencyTimeout"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes"`
}

type LogConfig struct {
	// debug, info, warn, error
	Level string `yaml:"level"`
	// json ou console
	Format string `yaml:"format"`
}

type RateLimitConfig struct {
	WindowMs    int64  `yaml:"windowMs"`
	MaxRequests int    `yaml:"maxRequests"`
	Backend     string `yaml:"backend"`

	BoltPath string `yaml:"boltPath"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix"`

	// Usar X-Forwarded-For / X-Real-IP para identificar o cliente. Só é
	// seguro atrás de um proxy que sobrescreve esses headers.
	TrustProxyHeaders bool `yaml:"trustProxyHeaders"`
}

type StatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Bucket        string        `yaml:"bucket"`
	TrackKeys     bool          `yaml:"trackKeys"`
	KeyLimit      int           `yaml:"keyLimit"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// To é a caixa que recebe as consultas.
	To string `yaml:"to"`
}

type MailConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"maxAttempts"`
	RetryBackoff  time.Duration `yaml:"retryBackoff"`
	RatePerMinute float64       `yaml:"ratePerMinute"`
	Burst         int           `yaml:"burst"`
	Timezone      string        `yaml:"timezone"`
	DryRun        bool          `yaml:"dryRun"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:         ":8080",
			AllowOrigin:        "*",
			ConcurrencyMax:     100,
			ConcurrencyTimeout: 5 * time.Second,
			MaxBodyBytes:       64 << 10,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{
			WindowMs:          domain.DefaultWindow.Milliseconds(),
			MaxRequests:       domain.DefaultMax,
			Backend:           BackendMemory,
			BoltPath:          "contactd-ratelimit.db",
			RedisPrefix:       "contact:ratelimit",
			TrustProxyHeaders: true,
		},
		Stats: StatsConfig{
			Prefix:   "contact:stats",
			TTL:      24 * time.Hour,
			Bucket:   "minute",
			KeyLimit: 1000,
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
			To:   "contacto@profesorg.com",
		},
		Mail: MailConfig{
			Timeout:       15 * time.Second,
			MaxAttempts:   1,
			RetryBackoff:  2 * time.Second,
			RatePerMinute: 30,
			Burst:         5,
			Timezone:      "America/Lima",
		},
	}
}

// Load é Read seguido de Validate.
func Load(path string, envFiles ...string) (Config, error) {
	cfg, err := Read(path, envFiles...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read monta a configuração sem validar, para quem ainda aplica flags por
// cima. `path` vazio pula o YAML. Sem envFiles tenta ".env" no diretório
// atual; arquivos ausentes são ignorados. Variáveis já definidas no ambiente
// nunca são sobrescritas pelo .env.
func Read(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) error {
	var e envReader

	e.str("LISTEN_ADDR", &c.Server.ListenAddr)
	e.str("CORS_ALLOW_ORIGIN", &c.Server.AllowOrigin)
	e.int("CONCURRENCY_MAX", &c.Server.ConcurrencyMax)
	e.duration("CONCURRENCY_TIMEOUT", &c.Server.ConcurrencyTimeout)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.int64("RATE_LIMIT_WINDOW_MS", &c.RateLimit.WindowMs)
	e.int("RATE_LIMIT_MAX_REQUESTS", &c.RateLimit.MaxRequests)
	e.str("RATE_LIMIT_BACKEND", &c.RateLimit.Backend)
	e.str("RATE_LIMIT_BOLT_PATH", &c.RateLimit.BoltPath)
	e.str("RATE_LIMIT_REDIS_ADDR", &c.RateLimit.RedisAddr)
	e.str("RATE_LIMIT_REDIS_PASSWORD", &c.RateLimit.RedisPassword)
	e.int("RATE_LIMIT_REDIS_DB", &c.RateLimit.RedisDB)
	e.str("RATE_LIMIT_REDIS_PREFIX", &c.RateLimit.RedisPrefix)
	e.bool("TRUST_PROXY_HEADERS", &c.RateLimit.TrustProxyHeaders)

	e.bool("RATE_STATS_ENABLED", &c.Stats.Enabled)
	e.str("RATE_STATS_REDIS_ADDR", &c.Stats.RedisAddr)
	e.str("RATE_STATS_REDIS_PASSWORD", &c.Stats.RedisPassword)
	e.int("RATE_STATS_REDIS_DB", &c.Stats.RedisDB)
	e.str("RATE_STATS_PREFIX", &c.Stats.Prefix)
	e.duration("RATE_STATS_TTL", &c.Stats.TTL)
	e.str("RATE_STATS_BUCKET", &c.Stats.Bucket)
	e.bool("RATE_STATS_TRACK_KEYS", &c.Stats.TrackKeys)
	e.int("RATE_STATS_KEY_LIMIT", &c.Stats.KeyLimit)

	e.str("SMTP_HOST", &c.SMTP.Host)
	e.int("SMTP_PORT", &c.SMTP.Port)
	e.str("SMTP_USER", &c.SMTP.User)
	e.str("SMTP_PASS", &c.SMTP.Password)
	e.str("SMTP_FROM", &c.SMTP.From)
	e.str("CONTACT_EMAIL", &c.SMTP.To)

	e.duration("MAIL_TIMEOUT", &c.Mail.Timeout)
	e.int("MAIL_MAX_ATTEMPTS", &c.Mail.MaxAttempts)
	e.duration("MAIL_RETRY_BACKOFF", &c.Mail.RetryBackoff)
	e.float("MAIL_RATE_PER_MINUTE", &c.Mail.RatePerMinute)
	e.int("MAIL_BURST", &c.Mail.Burst)
	e.str("MAIL_TIMEZONE", &c.Mail.Timezone)
	e.bool("MAIL_DRY_RUN", &c.Mail.DryRun)

	return e.err()
}

// Validate confere valores e combinações. Todos os erros carregam ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		bad("listen address is required")
	}
	if c.Server.ConcurrencyMax < 0 {
		bad("CONCURRENCY_MAX must be >= 0")
	}
	if c.Server.MaxBodyBytes <= 0 {
		bad("server.maxBodyBytes must be > 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("unsupported log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		bad("unsupported log format %q", c.Log.Format)
	}

	if c.RateLimit.WindowMs <= 0 {
		bad("RATE_LIMIT_WINDOW_MS must be > 0")
	}
	if c.RateLimit.MaxRequests <= 0 {
		bad("RATE_LIMIT_MAX_REQUESTS must be > 0")
	}
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendBolt:
		if strings.TrimSpace(c.RateLimit.BoltPath) == "" {
			bad("RATE_LIMIT_BOLT_PATH is required for the bolt backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RateLimit.RedisAddr) == "" {
			bad("RATE_LIMIT_REDIS_ADDR is required for the redis backend")
		}
	default:
		bad("unsupported rate limit backend %q", c.RateLimit.Backend)
	}

	if c.Stats.TrackKeys && c.Stats.KeyLimit <= 0 {
		bad("RATE_STATS_KEY_LIMIT must be > 0 when RATE_STATS_TRACK_KEYS=true")
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		bad("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}

	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		bad("SMTP_PORT out of range: %d", c.SMTP.Port)
	}
	if strings.TrimSpace(c.SMTP.To) == "" {
		bad("CONTACT_EMAIL is required")
	}
	if !c.Mail.DryRun {
		if strings.TrimSpace(c.SMTP.Host) == "" {
			bad("SMTP_HOST is required")
		}
		if c.SMTP.User == "" || c.SMTP.Password == "" {
			bad("SMTP_USER and SMTP_PASS are required unless MAIL_DRY_RUN=true")
		}
	}

	if c.Mail.Timeout <= 0 {
		bad("MAIL_TIMEOUT must be > 0")
	}
	if c.Mail.MaxAttempts < 1 {
		bad("MAIL_MAX_ATTEMPTS must be >= 1")
	}
	if c.Mail.RetryBackoff < 0 {
		bad("MAIL_RETRY_BACKOFF must be >= 0")
	}
	if c.Mail.RatePerMinute > 0 && c.Mail.Burst < 1 {
		bad("MAIL_BURST must be >= 1 when MAIL_RATE_PER_MINUTE > 0")
	}
	if _, err := time.LoadLocation(c.Mail.Timezone); err != nil {
		bad("MAIL_TIMEZONE %q: %v", c.Mail.Timezone, err)
	}

	return errors.Join(errs...)
}

// Policy converte a seção rateLimit na política do limitador.
func (c Config) Policy() domain.Policy {
	return domain.Policy{
		Window: time.Duration(c.RateLimit.WindowMs) * time.Millisecond,
		Max:    c.RateLimit.MaxRequests,
	}
}

// Location devolve o fuso usado no corpo do e-mail.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Mail.Timezone)
}

// Redacted devolve uma cópia sem senhas, para log e check-config.
func (c Config) Redacted() Config {
	c.SMTP.Password = mask(c.SMTP.Password)
	c.RateLimit.RedisPassword = mask(c.RateLimit.RedisPassword)
	c.Stats.RedisPassword = mask(c.Stats.RedisPassword)
	return c
}

// YAML serializa a configuração (use em Redacted()).
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
