package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file in the working directory).
// It is built once in main and passed to each component; nothing reads env later.
type Config struct {
	App       AppConfig
	Log       LogConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env       string
	Port      int
	APIPrefix string
}

type LogConfig struct {
	Level string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. Without a host the rate limiter runs in memory,
// which only holds for a single replica.
type RedisConfig struct {
	Host string
	Port int
}

// PermissionSource decides where a verified request gets its permissions from.
type PermissionSource string

const (
	// PermissionSourceToken trusts the permission list embedded at issuance.
	// A role change takes effect only when the access token expires.
	PermissionSourceToken PermissionSource = "token"
	// PermissionSourceUser re-derives permissions from the user's current role.
	PermissionSourceUser PermissionSource = "user"
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

type AuthConfig struct {
	JWTSecret       string
	RefreshSecret   string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	PermissionSource PermissionSource
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int

	AuthWindow      time.Duration
	AuthMaxRequests int
}

func Load() (Config, error) {
	// A missing .env file is the normal case in deployed environments.
	_ = godotenv.Load()

	c := Config{}
	p := &envParser{}

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port = p.requiredInt("APP_PORT")
	c.App.APIPrefix = strings.TrimSpace(os.Getenv("API_PREFIX"))

	c.Log.Level = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = p.requiredInt("DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = p.optionalInt("REDIS_PORT")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.RefreshSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Durations and numeric knobs are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = p.optionalDuration("JWT_EXPIRES_IN")
	c.Auth.RefreshTokenTTL = p.optionalDuration("REFRESH_TOKEN_EXPIRES_IN")
	c.Auth.BcryptCost = p.optionalInt("BCRYPT_COST")
	c.Auth.PermissionSource = PermissionSource(strings.TrimSpace(os.Getenv("AUTH_PERMISSION_SOURCE")))

	c.RateLimit.Window = p.optionalDuration("RATE_LIMIT_WINDOW")
	c.RateLimit.MaxRequests = p.optionalInt("RATE_LIMIT_MAX_REQUESTS")
	c.RateLimit.AuthWindow = p.optionalDuration("AUTH_RATE_LIMIT_WINDOW")
	c.RateLimit.AuthMaxRequests = p.optionalInt("AUTH_RATE_LIMIT_MAX_REQUESTS")

	if err := joinErrors(p.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, test, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.APIPrefix == "" {
		c.App.APIPrefix = "/api/v1"
	}
	if !strings.HasPrefix(c.App.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX must start with /, got %q", c.App.APIPrefix))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of error, warn, info, debug, got %q", c.Log.Level))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if len(c.Auth.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength))
	}
	if len(c.Auth.RefreshSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d characters", MinSecretLength))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRES_IN must be greater than JWT_EXPIRES_IN"))
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	switch c.Auth.PermissionSource {
	case "":
		c.Auth.PermissionSource = PermissionSourceToken
	case PermissionSourceToken, PermissionSourceUser:
	default:
		errs = append(errs, fmt.Errorf("AUTH_PERMISSION_SOURCE must be one of token, user, got %q", c.Auth.PermissionSource))
	}

	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 100
	}
	if c.RateLimit.AuthWindow <= 0 {
		c.RateLimit.AuthWindow = 15 * time.Minute
	}
	if c.RateLimit.AuthMaxRequests <= 0 {
		c.RateLimit.AuthMaxRequests = 5
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// envParser collects parse failures so Load can report all of them at once.
type envParser struct {
	errs []error
}

func (p *envParser) requiredInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		p.errs = append(p.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	return p.parseInt(key, v)
}

func (p *envParser) optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	return p.parseInt(key, v)
}

func (p *envParser) parseInt(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func (p *envParser) optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return 0
	}
	return d
}

// ParseDuration accepts Go duration syntax plus a whole-day form such as "7d".
func ParseDuration(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "test", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch v {
	case "error", "warn", "info", "debug":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
