package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"topdivers/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Backend    BackendConfig    `yaml:"backend"`
	Auth       AuthConfig       `yaml:"auth"`
	Chat       ChatConfig       `yaml:"chat"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
	Sitemap    SitemapConfig    `yaml:"sitemap"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type HTTPConfig struct {
	Port          int             `yaml:"port"`
	PublicBaseURL string          `yaml:"public_base_url"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BackendConfig points at the REST and WebSocket backend.
type BackendConfig struct {
	APIURL   string        `yaml:"api_url"`
	WSURL    string        `yaml:"ws_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	CookieName        string        `yaml:"cookie_name"`
	CookieSecure      bool          `yaml:"cookie_secure"`
	CookieMaxAge      time.Duration `yaml:"cookie_max_age"`
	VerifyInterval    time.Duration `yaml:"verify_interval"`
	RecentLoginWindow time.Duration `yaml:"recent_login_window"`
	LoginAttempts     int           `yaml:"login_attempts"`
	LoginWindow       time.Duration `yaml:"login_window"`
}

type ChatConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	AdminToken   string        `yaml:"admin_token"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	InvoicesSpreadsheetID string `yaml:"invoices_spreadsheet_id"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	StaffChatID int64  `yaml:"staff_chat_id"`
	Debug       bool   `yaml:"debug"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type SitemapConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	PagesFile string        `yaml:"pages_file"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.APIURL == "" {
		return errors.New("backend api_url is required")
	}
	u, err := url.Parse(c.Backend.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend api_url must be absolute: %q", c.Backend.APIURL)
	}
	if c.Backend.WSURL != "" {
		ws, err := url.Parse(c.Backend.WSURL)
		if err != nil || (ws.Scheme != "ws" && ws.Scheme != "wss") {
			return fmt.Errorf("backend ws_url must be a ws:// or wss:// url: %q", c.Backend.WSURL)
		}
	}

	if err := validatePort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if c.Monitoring.PrometheusEnabled {
		if err := validatePort("monitoring.prometheus_port", c.Monitoring.PrometheusPort); err != nil {
			return err
		}
	}

	if c.Chat.MaxRetries < 0 {
		return errors.New("chat max_retries must be >= 0")
	}
	if c.Auth.LoginAttempts < 0 {
		return errors.New("auth login_attempts must be >= 0")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return nil
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s out of range: %d", name, port)
	}
	return nil
}

// WSURL returns the chat WebSocket root, derived from api_url when unset.
func (c *Config) WSURL() string {
	if c.Backend.WSURL != "" {
		return c.Backend.WSURL
	}
	u, err := url.Parse(c.Backend.APIURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = ""
	return u.String()
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "topdivers"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Backend.CacheTTL == 0 {
		c.Backend.CacheTTL = models.DefaultCacheTTL * time.Second
	}

	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "auth-storage"
	}
	if c.Auth.CookieMaxAge == 0 {
		c.Auth.CookieMaxAge = 7 * 24 * time.Hour
	}
	if c.Auth.VerifyInterval == 0 {
		c.Auth.VerifyInterval = time.Hour
	}
	if c.Auth.RecentLoginWindow == 0 {
		c.Auth.RecentLoginWindow = 5 * time.Minute
	}
	if c.Auth.LoginAttempts == 0 {
		c.Auth.LoginAttempts = 5
	}
	if c.Auth.LoginWindow == 0 {
		c.Auth.LoginWindow = 15 * time.Minute
	}

	if c.Chat.MaxRetries == 0 {
		c.Chat.MaxRetries = 5
	}
	if c.Chat.InitialDelay == 0 {
		c.Chat.InitialDelay = time.Second
	}
	if c.Chat.MaxDelay == 0 {
		c.Chat.MaxDelay = 30 * time.Second
	}

	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}

	if c.Sitemap.Timeout == 0 {
		c.Sitemap.Timeout = 10 * time.Second
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
