package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Board    BoardConfig
	Dispatch DispatchConfig
	Captcha  CaptchaConfig
	Ops      OpsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	// IPRateLimit caps requests per client IP per window, 0 disables
	IPRateLimit       int
	IPRateLimitWindow time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	// StrictAuth rejects API requests without a valid token instead of
	// extracting identity only when a token is present
	StrictAuth bool
}

// BoardConfig holds feature board behavior settings
type BoardConfig struct {
	// VoteThreshold is the live vote count that triggers implementation
	VoteThreshold int
	// VoteLimitEnabled toggles the per-user vote rate limit
	VoteLimitEnabled bool
	// VoteLimit is the number of vote toggles allowed per window
	VoteLimit int
	// VoteLimitWindow is the vote rate limit window
	VoteLimitWindow time.Duration
	// SubmissionLimit is the number of feature submissions allowed per window
	SubmissionLimit int
	// SubmissionLimitWindow is the submission rate limit window
	SubmissionLimitWindow time.Duration
}

// DispatchConfig holds the GitHub Actions workflow dispatch settings
type DispatchConfig struct {
	GitHubToken    string
	Repository     string
	WorkflowFile   string
	Ref            string
	APIBaseURL     string
	TimeoutSeconds int
}

// CaptchaConfig holds hCaptcha verification settings
type CaptchaConfig struct {
	Enabled        bool
	Secret         string
	SiteVerifyURL  string
	TimeoutSeconds int
}

// OpsConfig holds operator endpoint settings
type OpsConfig struct {
	// Token authorizes the manual force-complete endpoint
	Token string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BOARD_ prefix (e.g., BOARD_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("BOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			IPRateLimit:       v.GetInt("http.ip_rate_limit"),
			IPRateLimitWindow: v.GetDuration("http.ip_rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			StrictAuth:        v.GetBool("http.strict_auth"),
		},
		Board: BoardConfig{
			VoteThreshold:         v.GetInt("board.vote_threshold"),
			VoteLimitEnabled:      getBoolDefault(v, "board.vote_limit_enabled", true),
			VoteLimit:             v.GetInt("board.vote_limit"),
			VoteLimitWindow:       v.GetDuration("board.vote_limit_window"),
			SubmissionLimit:       v.GetInt("board.submission_limit"),
			SubmissionLimitWindow: v.GetDuration("board.submission_limit_window"),
		},
		Dispatch: DispatchConfig{
			GitHubToken:    v.GetString("dispatch.github_token"),
			Repository:     v.GetString("dispatch.repository"),
			WorkflowFile:   v.GetString("dispatch.workflow_file"),
			Ref:            v.GetString("dispatch.ref"),
			APIBaseURL:     v.GetString("dispatch.api_base_url"),
			TimeoutSeconds: v.GetInt("dispatch.timeout_seconds"),
		},
		Captcha: CaptchaConfig{
			Enabled:        v.GetBool("captcha.enabled"),
			Secret:         v.GetString("captcha.secret"),
			SiteVerifyURL:  v.GetString("captcha.site_verify_url"),
			TimeoutSeconds: v.GetInt("captcha.timeout_seconds"),
		},
		Ops: OpsConfig{
			Token: v.GetString("ops.token"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getBoolDefault reads a bool key falling back to a default when unset
func getBoolDefault(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "feature-board"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "featureboard"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "feature-board"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.IPRateLimit == 0 {
		cfg.HTTP.IPRateLimit = 120
	}
	if cfg.HTTP.IPRateLimitWindow == 0 {
		cfg.HTTP.IPRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Board.VoteThreshold == 0 {
		cfg.Board.VoteThreshold = 5
	}
	if cfg.Board.VoteLimit == 0 {
		cfg.Board.VoteLimit = 10
	}
	if cfg.Board.VoteLimitWindow == 0 {
		cfg.Board.VoteLimitWindow = time.Minute
	}
	if cfg.Board.SubmissionLimit == 0 {
		cfg.Board.SubmissionLimit = 3
	}
	if cfg.Board.SubmissionLimitWindow == 0 {
		cfg.Board.SubmissionLimitWindow = 24 * time.Hour
	}
	if cfg.Dispatch.WorkflowFile == "" {
		cfg.Dispatch.WorkflowFile = "implement-feature.yml"
	}
	if cfg.Dispatch.Ref == "" {
		cfg.Dispatch.Ref = "main"
	}
	if cfg.Dispatch.APIBaseURL == "" {
		cfg.Dispatch.APIBaseURL = "https://api.github.com"
	}
	if cfg.Dispatch.TimeoutSeconds == 0 {
		cfg.Dispatch.TimeoutSeconds = 10
	}
	if cfg.Captcha.SiteVerifyURL == "" {
		cfg.Captcha.SiteVerifyURL = "https://hcaptcha.com/siteverify"
	}
	if cfg.Captcha.TimeoutSeconds == 0 {
		cfg.Captcha.TimeoutSeconds = 5
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Board.VoteThreshold < 1 {
		return fmt.Errorf("board.vote_threshold must be at least 1")
	}

	if c.Captcha.Enabled && c.Captcha.Secret == "" {
		return fmt.Errorf("captcha.secret is required when captcha.enabled is true")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Ops.Token != "" && len(c.Ops.Token) < 32 {
			return fmt.Errorf("ops.token must be at least 32 characters in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
