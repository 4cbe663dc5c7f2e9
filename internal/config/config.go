// Package config loads authd process configuration from an optional YAML
// file, an optional .env file and AUTHD_* environment variables, in
// increasing order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/internal/logger"
	"github.com/cignalottu/authcore/password"
)

const EnvPrefix = "AUTHD"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sql"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Pass    PassConfig    `mapstructure:"password"`
	OAuth2  OAuth2Config  `mapstructure:"oauth2"`
	Logging logger.Config `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Audit   AuditConfig   `mapstructure:"audit"`
	// Seed inserts the development users at startup.
	Seed bool `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type StoreConfig struct {
	Driver      string      `mapstructure:"driver"`
	DatabaseURL string      `mapstructure:"database_url"`
	Redis       RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	Encoding string `mapstructure:"encoding"`
}

type JWTConfig struct {
	// Secret is base64 encoded and must decode to at least 32 bytes.
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
}

type PassConfig struct {
	Algorithm  string `mapstructure:"algorithm"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

type OAuth2Config struct {
	Google GoogleConfig `mapstructure:"google"`
	Cookie CookieConfig `mapstructure:"cookie"`
	// DefaultFirstName is stored for federated identities without a name.
	DefaultFirstName string `mapstructure:"default_first_name"`
	// AllowedRedirects lists the origins accepted as redirect_uri targets.
	AllowedRedirects []string `mapstructure:"allowed_redirects"`
}

type GoogleConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool { return g.ClientID != "" }

type CookieConfig struct {
	// HashKey and BlockKey are base64 encoded.
	HashKey  string `mapstructure:"hash_key"`
	BlockKey string `mapstructure:"block_key"`
	Path     string `mapstructure:"path"`
	Secure   bool   `mapstructure:"secure"`
	MaxAge   int    `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

// AuditConfig enables authentication event logging through the service
// logger.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type loadOptions struct {
	configFile string
	envFile    string
}

type Option func(*loadOptions)

func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:4200"})

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "ac")
	v.SetDefault("store.redis.encoding", "binary")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "authcore")

	v.SetDefault("password.algorithm", string(password.AlgorithmBcrypt))
	v.SetDefault("password.bcrypt_cost", password.DefaultBcryptCost)

	v.SetDefault("oauth2.google.client_id", "")
	v.SetDefault("oauth2.google.client_secret", "")
	v.SetDefault("oauth2.google.redirect_url", "http://localhost:8080/auth/oauth2/callback/google")
	v.SetDefault("oauth2.google.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("oauth2.cookie.hash_key", "")
	v.SetDefault("oauth2.cookie.block_key", "")
	v.SetDefault("oauth2.cookie.path", "/auth")
	v.SetDefault("oauth2.cookie.secure", false)
	v.SetDefault("oauth2.cookie.max_age", 180)
	v.SetDefault("oauth2.default_first_name", "Google User")
	v.SetDefault("oauth2.allowed_redirects", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.FormatJSON)
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.timestamp", true)
	v.SetDefault("logging.caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", false)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)

	v.SetDefault("seed", false)
}

// Load resolves the configuration and validates it.
func Load(opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	case StoreSQL:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the sql driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory, redis or sql (got: %s)", c.Store.Driver)
	}
	switch c.Store.Redis.Encoding {
	case "", "binary", "msgpack":
	default:
		return fmt.Errorf("store.redis.encoding must be binary or msgpack (got: %s)", c.Store.Redis.Encoding)
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if _, err := decodeKey("jwt.secret", c.JWT.Secret); err != nil {
		return err
	}

	if c.OAuth2.Google.Enabled() {
		if c.OAuth2.Google.ClientSecret == "" {
			return errors.New("oauth2.google.client_secret is required when client_id is set")
		}
		if c.OAuth2.Cookie.HashKey == "" {
			return errors.New("oauth2.cookie.hash_key is required when google sign-in is enabled")
		}
	}
	if _, err := decodeKey("oauth2.cookie.hash_key", c.OAuth2.Cookie.HashKey); err != nil {
		return err
	}
	if _, err := decodeKey("oauth2.cookie.block_key", c.OAuth2.Cookie.BlockKey); err != nil {
		return err
	}

	return c.Logging.Validate()
}

// Engine converts the process configuration to an engine configuration.
// The result still has to pass authcore.Config.Validate.
func (c *Config) Engine() (authcore.Config, error) {
	secret, err := decodeKey("jwt.secret", c.JWT.Secret)
	if err != nil {
		return authcore.Config{}, err
	}

	cfg := authcore.DefaultConfig()
	cfg.Token.Secret = secret
	cfg.Token.AccessTTL = c.JWT.AccessTTL
	cfg.Token.RefreshTTL = c.JWT.RefreshTTL
	if c.JWT.Issuer != "" {
		cfg.Token.Issuer = c.JWT.Issuer
	}
	if c.Pass.Algorithm != "" {
		cfg.Password.Algorithm = password.Algorithm(c.Pass.Algorithm)
	}
	if c.Pass.BcryptCost != 0 {
		cfg.Password.BcryptCost = c.Pass.BcryptCost
	}
	if c.OAuth2.DefaultFirstName != "" {
		cfg.Federation.DefaultFirstName = c.OAuth2.DefaultFirstName
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.LatencyHistograms
	cfg.Audit = authcore.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	return cfg, nil
}

// CookieKeys returns the decoded cookie hash and block keys.
func (c *Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	if hashKey, err = decodeKey("oauth2.cookie.hash_key", c.OAuth2.Cookie.HashKey); err != nil {
		return nil, nil, err
	}
	if blockKey, err = decodeKey("oauth2.cookie.block_key", c.OAuth2.Cookie.BlockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

func decodeKey(name, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be base64: %w", name, err)
	}
	return key, nil
}
