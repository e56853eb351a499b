package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	EasyEcom    EasyEcomConfig  `toml:"easyecom"`
	Poller      PollerConfig    `toml:"poller"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Output        []string `toml:"output"`          // "stdout", "file"
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to broadcast to UI clients
}

// EasyEcomConfig carries credentials and endpoints for the EasyEcom reporting
// API. Every value can be overridden via environment variables so the
// compiled-in defaults never have to leave a developer machine.
type EasyEcomConfig struct {
	BaseURL        string `toml:"base_url"`
	JWT            string `toml:"jwt"`
	APIKey         string `toml:"api_key"`
	WarehouseID    string `toml:"warehouse_id"`
	RelayURL       string `toml:"relay_url"`       // Same-origin relay used when direct downloads are blocked
	SimulationMode bool   `toml:"simulation_mode"` // Route all API calls to deterministic synthetic responses
	RequestTimeout string `toml:"request_timeout"` // e.g., "30s" - HTTP client timeout for EasyEcom calls
	RateLimit      int    `toml:"rate_limit"`      // Requests per second against the EasyEcom API
}

// PollerConfig controls the report status polling loop.
type PollerConfig struct {
	Interval string `toml:"interval"` // e.g., "3s" - delay between status checks for one job
	Timeout  string `toml:"timeout"`  // e.g., "120s" - hard ceiling after which polling stops silently
}

// SchedulerConfig controls background maintenance tasks.
type SchedulerConfig struct {
	Enabled    bool   `toml:"enabled"`
	GCSchedule string `toml:"gc_schedule"` // Cron schedule for Badger value-log GC
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`         // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"`  // Log message patterns to exclude from broadcasting
	EventsPerSecond int      `toml:"events_per_second"` // Throttle for job status events (0 = unthrottled)
}

// DefaultConfig returns the compiled-in configuration defaults. File values,
// environment variables and CLI flags are layered on top, in that order.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 3001,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/relatus",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		EasyEcom: EasyEcomConfig{
			BaseURL:        "https://api.easyecom.io",
			RelayURL:       "http://localhost:3001",
			RequestTimeout: "30s",
			RateLimit:      10,
		},
		Poller: PollerConfig{
			Interval: "3s",
			Timeout:  "120s",
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			GCSchedule: "@every 30m",
		},
		WebSocket: WebSocketConfig{
			MinLevel:        "info",
			EventsPerSecond: 20,
		},
	}
}

// LoadFromFiles loads configuration from one or more TOML files. Later files
// override earlier ones, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: RELATUS_ENV, fallback: GO_ENV)
	if env := os.Getenv("RELATUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("RELATUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RELATUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("RELATUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("RELATUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RELATUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("RELATUS_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// EasyEcom configuration. The unprefixed names match what the hosted
	// dashboard deployment already exports.
	if baseURL := os.Getenv("EASYECOM_BASE_URL"); baseURL != "" {
		config.EasyEcom.BaseURL = baseURL
	}
	if jwt := os.Getenv("EASYECOM_JWT"); jwt != "" {
		config.EasyEcom.JWT = jwt
	}
	if apiKey := os.Getenv("EASYECOM_API_KEY"); apiKey != "" {
		config.EasyEcom.APIKey = apiKey
	}
	if warehouseID := os.Getenv("EASYECOM_WAREHOUSE_ID"); warehouseID != "" {
		config.EasyEcom.WarehouseID = warehouseID
	}
	if relayURL := os.Getenv("RELATUS_RELAY_URL"); relayURL != "" {
		config.EasyEcom.RelayURL = relayURL
	}
	if simulation := os.Getenv("RELATUS_SIMULATION_MODE"); simulation != "" {
		if sim, err := strconv.ParseBool(simulation); err == nil {
			config.EasyEcom.SimulationMode = sim
		}
	}
	if requestTimeout := os.Getenv("RELATUS_EASYECOM_REQUEST_TIMEOUT"); requestTimeout != "" {
		if _, err := time.ParseDuration(requestTimeout); err == nil {
			config.EasyEcom.RequestTimeout = requestTimeout
		}
	}
	if rateLimit := os.Getenv("RELATUS_EASYECOM_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.EasyEcom.RateLimit = rl
		}
	}

	// Poller configuration
	if interval := os.Getenv("RELATUS_POLLER_INTERVAL"); interval != "" {
		if _, err := time.ParseDuration(interval); err == nil {
			config.Poller.Interval = interval
		}
	}
	if timeout := os.Getenv("RELATUS_POLLER_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Poller.Timeout = timeout
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("RELATUS_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("RELATUS_SCHEDULER_GC_SCHEDULE"); schedule != "" {
		config.Scheduler.GCSchedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running with a production environment setting
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
