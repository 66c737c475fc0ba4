package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is resolved once at startup. Every field follows the same
// precedence: explicit override > environment > detected > default.
type Config struct {
	API      APIConfig
	Telegram TelegramConfig
	DB       DBConfig
	Session  SessionConfig
	Search   SearchConfig
	Log      LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type TelegramConfig struct {
	Token string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Enabled reports whether a Postgres identity cache is configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

type SessionConfig struct {
	RevalidateInterval time.Duration
	FocusIdle          time.Duration
}

type SearchConfig struct {
	Debounce time.Duration
	Limit    int
}

type LogConfig struct {
	Level  string
	Format string
}

// Overrides carries values given explicitly on the command line.
type Overrides struct {
	APIBaseURL string
	Token      string
	LogLevel   string
}

const (
	defaultProtocol = "http"
	defaultHost     = "localhost"
	defaultPort     = "8000"
	defaultPrefix   = "/api"

	maxSearchLimit = 20
)

func Load(o Overrides) (*Config, error) {
	_ = godotenv.Load()
	return load(o, os.Getenv)
}

func load(o Overrides, env func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(env(key)); v != "" {
			return v
		}
		return def
	}

	base, err := resolveAPIBase(o, env)
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration("HTTP_TIMEOUT", get("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, err
	}
	revalidate, err := parseDuration("REVALIDATE_INTERVAL", get("REVALIDATE_INTERVAL", "5m"))
	if err != nil {
		return nil, err
	}
	focusIdle, err := parseDuration("FOCUS_IDLE", get("FOCUS_IDLE", "2m"))
	if err != nil {
		return nil, err
	}
	debounce, err := parseDuration("SEARCH_DEBOUNCE", get("SEARCH_DEBOUNCE", "300ms"))
	if err != nil {
		return nil, err
	}

	limit, err := strconv.Atoi(get("SEARCH_LIMIT", "5"))
	if err != nil {
		return nil, fmt.Errorf("SEARCH_LIMIT: %w", err)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	dbPort, err := strconv.Atoi(get("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}

	token := o.Token
	if token == "" {
		token = get("TOKEN", "")
	}
	level := o.LogLevel
	if level == "" {
		level = get("LOG_LEVEL", "info")
	}

	return &Config{
		API: APIConfig{
			BaseURL: base,
			Timeout: timeout,
		},
		Telegram: TelegramConfig{
			Token: token,
		},
		DB: DBConfig{
			Host:     get("DB_HOST", ""),
			Port:     dbPort,
			User:     get("DB_USER", "postgres"),
			Password: get("DB_PASSWORD", ""),
			Database: get("DB_NAME", "qrbar"),
		},
		Session: SessionConfig{
			RevalidateInterval: revalidate,
			FocusIdle:          focusIdle,
		},
		Search: SearchConfig{
			Debounce: debounce,
			Limit:    limit,
		},
		Log: LogConfig{
			Level:  level,
			Format: get("LOG_FORMAT", "console"),
		},
	}, nil
}

// resolveAPIBase builds the backend base URL. A full URL (override or
// API_BASE_URL) wins; otherwise each part is taken from the environment,
// then from the origin of MENU_URL, then from the defaults.
func resolveAPIBase(o Overrides, env func(string) string) (string, error) {
	if o.APIBaseURL != "" {
		return normalizeBase(o.APIBaseURL)
	}
	if v := strings.TrimSpace(env("API_BASE_URL")); v != "" {
		return normalizeBase(v)
	}

	var detected *url.URL
	if v := strings.TrimSpace(env("MENU_URL")); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("MENU_URL: invalid url %q", v)
		}
		detected = u
	}

	protocol := strings.TrimSuffix(strings.TrimSpace(env("API_PROTOCOL")), ":")
	host := strings.TrimSpace(env("API_HOST"))
	port := strings.TrimSpace(env("API_PORT"))
	prefix := strings.TrimSpace(env("API_PREFIX"))

	if protocol == "" {
		protocol = defaultProtocol
		if detected != nil {
			protocol = detected.Scheme
		}
	}
	if host == "" {
		if detected != nil {
			host = detected.Hostname()
			if port == "" {
				port = detected.Port()
			}
		} else {
			host = defaultHost
		}
	}
	if port == "" && detected == nil {
		port = defaultPort
	}
	if prefix == "" {
		prefix = defaultPrefix
	}

	hostport := host
	if port != "" {
		hostport = host + ":" + port
	}
	return normalizeBase(protocol + "://" + hostport + "/" + strings.TrimPrefix(prefix, "/"))
}

func normalizeBase(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("api base url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api base url: missing host in %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}
