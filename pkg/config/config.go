package config

import (
	"fmt"
	"os"
	"time"

	"communityhub/pkg/validation"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Security struct {
		Window           time.Duration `yaml:"window"`
		PruneInterval    time.Duration `yaml:"prune_interval"`
		EvaluateInterval time.Duration `yaml:"evaluate_interval"` // 0 disables background evaluation
		RPMWarning       int           `yaml:"rpm_warning"`
		RPMCritical      int           `yaml:"rpm_critical"`
		ErrorWarning     float64       `yaml:"error_warning"`
		ErrorCritical    float64       `yaml:"error_critical"`
		TopSources       int           `yaml:"top_sources"`
	} `yaml:"security"`

	Backup struct {
		WebhookURL    string        `yaml:"webhook_url"`
		WebhookSecret string        `yaml:"webhook_secret"`
		Cooldown      time.Duration `yaml:"cooldown"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"backup"`

	Chat struct {
		Store         string        `yaml:"store"` // file, redis or memory
		HistoryLimit  int           `yaml:"history_limit"`
		SendInterval  time.Duration `yaml:"send_interval"`
		MaxTextLength int           `yaml:"max_text_length"`
		MaxAuthor     int           `yaml:"max_author_length"`
		AnonymousName string        `yaml:"anonymous_name"`
		PingInterval  time.Duration `yaml:"ping_interval"`
		PongTimeout   time.Duration `yaml:"pong_timeout"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`
		SendBuffer    int           `yaml:"send_buffer"`
	} `yaml:"chat"`

	Storage struct {
		DataDir    string `yaml:"data_dir"`
		ReportsDir string `yaml:"reports_dir"`
	} `yaml:"storage"`

	Uploads struct {
		Dir          string   `yaml:"dir"`
		URLPrefix    string   `yaml:"url_prefix"`
		MaxSizeBytes int64    `yaml:"max_size_bytes"`
		AllowedMIMEs []string `yaml:"allowed_mimes"`
	} `yaml:"uploads"`

	StatusProxy struct {
		BaseURL     string        `yaml:"base_url"`
		DefaultHost string        `yaml:"default_host"`
		DefaultPort string        `yaml:"default_port"`
		Timeout     time.Duration `yaml:"timeout"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
	} `yaml:"status_proxy"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`

		MinIdleConns int           `yaml:"min_idle_conns"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		IOTimeout    time.Duration `yaml:"io_timeout"` // read and write
	} `yaml:"redis"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		WebSocket struct {
			MaxConcurrent       int   `yaml:"max_concurrent_connections"`
			MaxMessageSizeBytes int64 `yaml:"max_message_size_bytes"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Security
	if c.Security.Window <= 0 {
		return fmt.Errorf("security.window must be > 0")
	}
	if c.Security.PruneInterval <= 0 {
		return fmt.Errorf("security.prune_interval must be > 0")
	}
	if c.Security.EvaluateInterval < 0 {
		return fmt.Errorf("security.evaluate_interval must be >= 0")
	}
	if c.Security.RPMWarning <= 0 || c.Security.RPMCritical < c.Security.RPMWarning {
		return fmt.Errorf("security.rpm_warning must be > 0 and <= rpm_critical")
	}
	if c.Security.ErrorWarning <= 0 || c.Security.ErrorCritical < c.Security.ErrorWarning || c.Security.ErrorCritical > 1 {
		return fmt.Errorf("security.error_warning must be > 0 and <= error_critical <= 1")
	}
	if c.Security.TopSources <= 0 {
		return fmt.Errorf("security.top_sources must be > 0")
	}

	// Backup
	if c.Backup.WebhookURL != "" {
		if err := validation.ValidateURL(c.Backup.WebhookURL); err != nil {
			return fmt.Errorf("backup.webhook_url: %w", err)
		}
	}
	if c.Backup.Cooldown < 0 {
		return fmt.Errorf("backup.cooldown must be >= 0")
	}
	if c.Backup.Timeout <= 0 {
		return fmt.Errorf("backup.timeout must be > 0")
	}

	// Chat
	switch c.Chat.Store {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("chat.store must be one of file, redis, memory")
	}
	if c.Chat.Store == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("chat.store=redis requires redis.enabled=true")
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be > 0")
	}
	if c.Chat.SendInterval < 0 {
		return fmt.Errorf("chat.send_interval must be >= 0")
	}
	if c.Chat.MaxTextLength <= 0 {
		return fmt.Errorf("chat.max_text_length must be > 0")
	}
	if c.Chat.MaxAuthor <= 0 {
		return fmt.Errorf("chat.max_author_length must be > 0")
	}
	if c.Chat.PingInterval <= 0 || c.Chat.PongTimeout <= c.Chat.PingInterval {
		return fmt.Errorf("chat.ping_interval must be > 0 and < pong_timeout")
	}
	if c.Chat.WriteTimeout <= 0 {
		return fmt.Errorf("chat.write_timeout must be > 0")
	}
	if c.Chat.SendBuffer <= 0 {
		return fmt.Errorf("chat.send_buffer must be > 0")
	}

	// Storage
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.ReportsDir == "" {
		return fmt.Errorf("storage.reports_dir must not be empty")
	}

	// Uploads
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir must not be empty")
	}
	if c.Uploads.URLPrefix == "" {
		return fmt.Errorf("uploads.url_prefix must not be empty")
	}
	if c.Uploads.MaxSizeBytes <= 0 {
		return fmt.Errorf("uploads.max_size_bytes must be > 0")
	}
	if len(c.Uploads.AllowedMIMEs) == 0 {
		return fmt.Errorf("uploads.allowed_mimes must not be empty")
	}

	// Status proxy
	if err := validation.ValidateURL(c.StatusProxy.BaseURL); err != nil {
		return fmt.Errorf("status_proxy.base_url: %w", err)
	}
	if c.StatusProxy.Timeout <= 0 {
		return fmt.Errorf("status_proxy.timeout must be > 0")
	}
	if c.StatusProxy.CacheTTL <= 0 {
		return fmt.Errorf("status_proxy.cache_ttl must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.MinIdleConns < 0 || c.Redis.MinIdleConns > c.Redis.PoolSize {
			return fmt.Errorf("redis.min_idle_conns must be between 0 and redis.pool_size")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}
	if c.RateLimiting.WebSocket.MaxConcurrent < 0 {
		return fmt.Errorf("rate_limiting.websocket.max_concurrent_connections must be >= 0")
	}
	if c.RateLimiting.WebSocket.MaxMessageSizeBytes < 0 {
		return fmt.Errorf("rate_limiting.websocket.max_message_size_bytes must be >= 0")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":3000"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Security.Window = 60 * time.Second
	cfg.Security.PruneInterval = 5 * time.Second
	cfg.Security.EvaluateInterval = 0
	cfg.Security.RPMWarning = 400
	cfg.Security.RPMCritical = 600
	cfg.Security.ErrorWarning = 0.10
	cfg.Security.ErrorCritical = 0.20
	cfg.Security.TopSources = 5

	cfg.Backup.Cooldown = 10 * time.Minute
	cfg.Backup.Timeout = 10 * time.Second

	cfg.Chat.Store = "file"
	cfg.Chat.HistoryLimit = 200
	cfg.Chat.SendInterval = 1200 * time.Millisecond
	cfg.Chat.MaxTextLength = 300
	cfg.Chat.MaxAuthor = 30
	cfg.Chat.AnonymousName = "Anonymous"
	cfg.Chat.PingInterval = 30 * time.Second
	cfg.Chat.PongTimeout = 60 * time.Second
	cfg.Chat.WriteTimeout = 10 * time.Second
	cfg.Chat.SendBuffer = 256

	cfg.Storage.DataDir = "data"
	cfg.Storage.ReportsDir = "reports"

	cfg.Uploads.Dir = "uploads/chat"
	cfg.Uploads.URLPrefix = "/uploads/chat"
	cfg.Uploads.MaxSizeBytes = 10 * 1024 * 1024
	cfg.Uploads.AllowedMIMEs = []string{
		"image/png", "image/jpeg", "image/webp", "image/gif",
		"video/mp4", "video/webm",
	}

	cfg.StatusProxy.BaseURL = "https://api.mcsrvstat.us/2"
	cfg.StatusProxy.DefaultHost = "flash.ateex.cloud"
	cfg.StatusProxy.DefaultPort = "18786"
	cfg.StatusProxy.Timeout = 5 * time.Second
	cfg.StatusProxy.CacheTTL = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "communityhub"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.MinIdleConns = 2
	cfg.Redis.DialTimeout = 5 * time.Second
	cfg.Redis.IOTimeout = 3 * time.Second

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.MaxMessageSizeBytes = 64 * 1024

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if hook := os.Getenv("CLOUD_BACKUP_WEBHOOK"); hook != "" {
		c.Backup.WebhookURL = hook
	}
	if secret := os.Getenv("CLOUD_BACKUP_SECRET"); secret != "" {
		c.Backup.WebhookSecret = secret
	}
	if addr := os.Getenv("COMMUNITYHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("COMMUNITYHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("COMMUNITYHUB_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if addr := os.Getenv("COMMUNITYHUB_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
}
