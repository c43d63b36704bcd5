package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the build version, set with -ldflags "-X github.com/nfrund/parley/internal/config.Version=...".
var Version = "dev"

// Storage drivers understood by the application container.
const (
	DriverSQLite  = "sqlite"
	DriverSurreal = "surreal"
)

// Room authorization policies.
const (
	PolicyOpen  = "open"
	PolicyMatch = "match"
)

// Provider is the read-only view of configuration handed to the rest of the app.
type Provider interface {
	GetServerAddr() string
	GetSessionSecret() string
	GetDevLogin() bool
	GetTrustedHeader() string

	GetStorageDriver() string
	GetSQLitePath() string
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetHistoryLimit() int
	GetSendBuffer() int
	GetMaxMessageLength() int
	GetSendNack() bool
	GetChatPolicy() string
	GetChatMatches() [][2]string

	GetOfflineDebounce() time.Duration

	GetTracingEnabled() bool
	GetTracingServiceName() string
	GetTracingZipkinURL() string

	GetLogFormat() string
	GetLogLevel() string
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr    string
	SessionSecret string
	DevLogin      bool
	TrustedHeader string

	StorageDriver    string
	SQLitePath       string
	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	HistoryLimit     int
	SendBuffer       int
	MaxMessageLength int
	SendNack         bool
	ChatPolicy       string
	ChatMatches      [][2]string

	OfflineDebounce time.Duration

	TracingEnabled     bool
	TracingServiceName string
	TracingZipkinURL   string

	LogFormat string
	LogLevel  string
}

var _ Provider = (*Config)(nil)

// New loads configuration from a .env file (if present) and the environment.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	cfg := &Config{
		ServerAddr:    getString("SERVER_ADDR", ":8080"),
		SessionSecret: getString("SESSION_SECRET", "parley-dev-secret-change-me"),
		DevLogin:      getBool("AUTH_DEV_LOGIN", false),
		TrustedHeader: os.Getenv("AUTH_TRUSTED_HEADER"),

		StorageDriver:    strings.ToLower(getString("STORAGE_DRIVER", DriverSQLite)),
		SQLitePath:       getString("SQLITE_PATH", "parley.db"),
		DBUrl:            os.Getenv("SURREAL_URL"),
		DBNs:             os.Getenv("SURREAL_NS"),
		DBDb:             os.Getenv("SURREAL_DB"),
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBQueryTimeout:   getDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout: getDuration("DB_EXECUTE_TIMEOUT", 10*time.Second),

		HistoryLimit:     getInt("CHAT_HISTORY_LIMIT", 50),
		SendBuffer:       getInt("CHAT_SEND_BUFFER", 256),
		MaxMessageLength: getInt("CHAT_MAX_MESSAGE_LENGTH", 4000),
		SendNack:         getBool("CHAT_SEND_NACK", false),
		ChatPolicy:       strings.ToLower(getString("CHAT_POLICY", PolicyOpen)),
		ChatMatches:      parsePairs(os.Getenv("CHAT_MATCHES")),

		OfflineDebounce: getDuration("PRESENCE_OFFLINE_DEBOUNCE", 5*time.Second),

		TracingEnabled:     getBool("PUBSUB_TRACING_ENABLED", false),
		TracingServiceName: getString("PUBSUB_TRACING_SERVICE_NAME", "parley"),
		TracingZipkinURL:   getString("PUBSUB_TRACING_ZIPKIN_URL", "http://localhost:9411/api/v2/spans"),

		LogFormat: getString("LOG_FORMAT", "text"),
		LogLevel:  getString("LOG_LEVEL", "debug"),
	}

	if cfg.StorageDriver == DriverSurreal && (cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "") {
		log.Fatal("STORAGE_DRIVER=surreal requires SURREAL_URL, SURREAL_NS and SURREAL_DB to be set.")
	}

	return cfg
}

func (c *Config) GetServerAddr() string    { return c.ServerAddr }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
func (c *Config) GetDevLogin() bool        { return c.DevLogin }
func (c *Config) GetTrustedHeader() string { return c.TrustedHeader }

func (c *Config) GetStorageDriver() string           { return c.StorageDriver }
func (c *Config) GetSQLitePath() string              { return c.SQLitePath }
func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }

func (c *Config) GetHistoryLimit() int        { return c.HistoryLimit }
func (c *Config) GetSendBuffer() int          { return c.SendBuffer }
func (c *Config) GetMaxMessageLength() int    { return c.MaxMessageLength }
func (c *Config) GetSendNack() bool           { return c.SendNack }
func (c *Config) GetChatPolicy() string       { return c.ChatPolicy }
func (c *Config) GetChatMatches() [][2]string { return c.ChatMatches }

func (c *Config) GetOfflineDebounce() time.Duration { return c.OfflineDebounce }

func (c *Config) GetTracingEnabled() bool       { return c.TracingEnabled }
func (c *Config) GetTracingServiceName() string { return c.TracingServiceName }
func (c *Config) GetTracingZipkinURL() string   { return c.TracingZipkinURL }

func (c *Config) GetLogFormat() string { return c.LogFormat }
func (c *Config) GetLogLevel() string  { return c.LogLevel }

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid value for %s: %q", key, v)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Ignoring invalid value for %s: %q", key, v)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("Ignoring invalid value for %s: %q", key, v)
		return fallback
	}
	return d
}

// parsePairs reads "a:b,c:d" into pairs, skipping malformed entries.
func parsePairs(raw string) [][2]string {
	var pairs [][2]string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		a, b, ok := strings.Cut(item, ":")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if !ok || a == "" || b == "" {
			log.Printf("Ignoring malformed CHAT_MATCHES entry %q", item)
			continue
		}
		pairs = append(pairs, [2]string{a, b})
	}
	return pairs
}
