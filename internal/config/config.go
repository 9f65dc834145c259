package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Report   ReportConfig   `json:"report"`
	Updater  UpdaterConfig  `json:"updater"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout"`
}

// DatabaseConfig represents the connection to the WooCommerce store database
type DatabaseConfig struct {
	Driver         string   `json:"driver"` // mysql or postgres
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	User           string   `json:"user"`
	Password       string   `json:"password"`
	DBName         string   `json:"db_name"`
	SSLMode        string   `json:"ssl_mode"`
	TablePrefix    string   `json:"table_prefix"`
	MaxConnections int      `json:"max_connections"`
	MaxIdleConns   int      `json:"max_idle_conns"`
	MaxLifetime    Duration `json:"max_lifetime"`
}

// ReportConfig holds listing and export limits
type ReportConfig struct {
	PerPage         int      `json:"per_page"`
	ExportBatchSize int      `json:"export_batch_size"`
	ExportMaxRows   int      `json:"export_max_rows"`
	TopCategories   int      `json:"top_categories"`
	CatalogCacheTTL Duration `json:"catalog_cache_ttl"` // 0 disables
}

// UpdaterConfig points the update checker at a release feed
type UpdaterConfig struct {
	APIBaseURL     string   `json:"api_base_url"`
	Owner          string   `json:"owner"`
	Repo           string   `json:"repo"`
	PluginName     string   `json:"plugin_name"`
	CurrentVersion string   `json:"current_version"`
	Token          string   `json:"token"`
	Timeout        Duration `json:"timeout"`
	// CheckSchedule is a cron spec for background checks; empty disables them
	CheckSchedule  string   `json:"check_schedule"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret      string `json:"jwt_secret"`
	CSRFCookieName string `json:"csrf_cookie_name"`
	SecureCookies  bool   `json:"secure_cookies"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// Duration decodes either a Go duration string ("10s") or integer seconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{2 * time.Minute},
			IdleTimeout:  Duration{time.Minute},
		},
		Database: DatabaseConfig{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           3306,
			User:           os.Getenv("USER"),
			DBName:         "wordpress",
			SSLMode:        "disable",
			TablePrefix:    "wp_",
			MaxConnections: 10,
			MaxIdleConns:   5,
			MaxLifetime:    Duration{5 * time.Minute},
		},
		Report: ReportConfig{
			PerPage:         50,
			ExportBatchSize: 100,
			ExportMaxRows:   5000,
			TopCategories:   6,
		},
		Updater: UpdaterConfig{
			APIBaseURL:     "https://api.github.com",
			Owner:          "RisePlugins",
			Repo:           "woo-customer-orders-report",
			PluginName:     "WooCommerce Customer Orders Report",
			CurrentVersion: "1.0.2",
			Timeout:        Duration{10 * time.Second},
		},
		Security: SecurityConfig{
			CSRFCookieName: "cor_csrf",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if prefix := os.Getenv("DATABASE_TABLE_PREFIX"); prefix != "" {
		config.Database.TablePrefix = prefix
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.Updater.Token = token
	}
	if schedule := os.Getenv("UPDATE_CHECK_SCHEDULE"); schedule != "" {
		config.Updater.CheckSchedule = schedule
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if !tablePrefixPattern.MatchString(c.Database.TablePrefix) {
		return fmt.Errorf("database.table_prefix %q may only contain letters, digits and underscores", c.Database.TablePrefix)
	}
	if c.Report.PerPage < 1 {
		return fmt.Errorf("report.per_page must be positive")
	}
	if c.Report.ExportBatchSize < 1 {
		return fmt.Errorf("report.export_batch_size must be positive")
	}
	if c.Report.ExportMaxRows < 1 {
		return fmt.Errorf("report.export_max_rows must be positive")
	}
	if c.Report.TopCategories < 1 {
		return fmt.Errorf("report.top_categories must be positive")
	}
	if c.Report.CatalogCacheTTL.Duration < 0 {
		return fmt.Errorf("report.catalog_cache_ttl must not be negative")
	}
	return nil
}

// GetDSN returns the driver-specific connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "postgres" {
		return c.GetDatabaseURL()
	}

	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.DBName
	// post_date is scanned as text so every driver yields the same layout
	cfg.ParseTime = false
	return cfg.FormatDSN()
}

// GetDatabaseURL returns the postgres connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
