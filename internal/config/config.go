package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

type Config struct {
	AppEnv   string
	LogLevel string
	LogDir   string

	// HTTP Server
	Port              string
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Storage
	DataBackend string
	DB          DBConfig

	// Sessions
	SessionTTL         time.Duration
	SessionRenewWindow time.Duration

	// Google sign-in; empty disables POST /api/auth/google
	GoogleClientID string
}

type DBConfig struct {
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	FullDSN string
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "./logging/logs")
	v.SetDefault("app_port", "8080")
	v.SetDefault("cors_origin", "http://localhost:5173")
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", 15*time.Minute)
	v.SetDefault("data_backend", BackendMySQL)
	v.SetDefault("db_user", "")
	v.SetDefault("db_pass", "")
	v.SetDefault("db_host", "")
	v.SetDefault("db_port", "")
	v.SetDefault("db_name", "burn_tracker")
	v.SetDefault("full_dsn", "")
	v.SetDefault("session_ttl", 30*24*time.Hour)
	v.SetDefault("session_renew_window", 5*24*time.Hour)
	v.SetDefault("google_client_id", "")

	v.AutomaticEnv()
	return v
}

// Load reads .env (if present) into the process environment and resolves the config from it.
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}
	return fromViper(newViper()), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppEnv:   strings.ToLower(v.GetString("app_env")),
		LogLevel: v.GetString("log_level"),
		LogDir:   v.GetString("log_dir"),

		Port:              v.GetString("app_port"),
		CORSOrigins:       splitList(v.GetString("cors_origin")),
		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),

		DataBackend: strings.ToLower(v.GetString("data_backend")),
		DB: DBConfig{
			User:    v.GetString("db_user"),
			Pass:    v.GetString("db_pass"),
			Host:    v.GetString("db_host"),
			Port:    v.GetString("db_port"),
			Name:    v.GetString("db_name"),
			FullDSN: v.GetString("full_dsn"),
		},

		SessionTTL:         v.GetDuration("session_ttl"),
		SessionRenewWindow: v.GetDuration("session_renew_window"),

		GoogleClientID: v.GetString("google_client_id"),
	}
}

func splitList(raw string) []string {
	var result []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendMySQL:
		if c.DB.FullDSN == "" && (c.DB.User == "" || c.DB.Pass == "" || c.DB.Host == "" || c.DB.Port == "") {
			problems = append(problems, "missing required DB environment variables: set FULL_DSN or DB_USER, DB_PASS, DB_HOST and DB_PORT")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMySQL, BackendMemory))
	}

	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			continue
		}
		if parsed, err := url.Parse(origin); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}

	if c.RateLimitRequests < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitRequests))
	}
	if c.RateLimitWindow < time.Second {
		problems = append(problems, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.SessionTTL < time.Hour {
		problems = append(problems, fmt.Sprintf("invalid session ttl %v: must be at least 1 hour", c.SessionTTL))
	}
	if c.SessionRenewWindow < 0 || c.SessionRenewWindow >= c.SessionTTL {
		problems = append(problems, fmt.Sprintf("invalid session renew window %v: must be between 0 and the session ttl", c.SessionRenewWindow))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
