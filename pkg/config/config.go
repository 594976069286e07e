package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request     RequestConfig     `yaml:"request"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Destination DestinationConfig `yaml:"destination"`
	Commute     CommuteConfig     `yaml:"commute"`
	Enrich      EnrichConfig      `yaml:"enrich"`
	Notify      NotifyConfig      `yaml:"notify"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"` // attempts per endpoint
	Timeout Duration      `yaml:"timeout"` // per-attempt timeout
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
	Multiplier float64  `yaml:"multiplier"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds dashboard HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DestinationConfig is the fixed commute destination all areas are measured
// against (e.g. King's Cross).
type DestinationConfig struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// CommuteConfig holds transit routing settings.
type CommuteConfig struct {
	TravelTimeURL   string `yaml:"traveltime_url"`
	TravelTimeAppID string `yaml:"traveltime_app_id"`
	TravelTimeKey   string `yaml:"traveltime_key"`
	GoogleURL       string `yaml:"google_url"`
	GoogleKey       string `yaml:"google_key"`
	// SearchWindowMin bounds the transit search; no route inside it means
	// the commute stage fails for this run.
	SearchWindowMin int `yaml:"search_window_min"`
	// WalkBufferMin is the default walking buffer (station egress plus
	// destination ingress) when no station data is available.
	WalkBufferMin int `yaml:"walk_buffer_min"`
}

// EnrichConfig holds POI and incident-statistics source settings.
type EnrichConfig struct {
	// OverpassEndpoints are equivalent POI endpoints tried in order.
	// At least two are required for fallback to mean anything.
	OverpassEndpoints []string `yaml:"overpass_endpoints"`
	AmenityRadiusM    int      `yaml:"amenity_radius_m"`
	NatureRadiusM     int      `yaml:"nature_radius_m"`
	PoliceURL         string   `yaml:"police_url"`
}

// NotifyConfig holds Telegram notification settings.
type NotifyConfig struct {
	TelegramURL string `yaml:"telegram_url"`
	Token       string `yaml:"token"`
	ChatID      string `yaml:"chat_id"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(45 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay:  Duration(2 * time.Second),
				MaxDelay:   Duration(30 * time.Second),
				Multiplier: 2.0,
			},
		},
		DB: DBConfig{
			Path: "./data/homescout.db",
		},
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Log: LogConfig{
			Path:  "./logs/homescout.log",
			Level: "INFO",
		},
		Destination: DestinationConfig{
			Name: "King's Cross",
			Lat:  51.5308,
			Lon:  -0.1238,
		},
		Commute: CommuteConfig{
			TravelTimeURL:   "https://api.traveltimeapp.com/v4/time-filter",
			GoogleURL:       "https://maps.googleapis.com/maps/api/directions/json",
			SearchWindowMin: 90,
			WalkBufferMin:   10,
		},
		Enrich: EnrichConfig{
			OverpassEndpoints: []string{
				"https://overpass-api.de/api/interpreter",
				"https://overpass.kumi.systems/api/interpreter",
			},
			AmenityRadiusM: 1500,
			NatureRadiusM:  2000,
			PoliceURL:      "https://data.police.uk/api",
		},
		Notify: NotifyConfig{
			TelegramURL: "https://api.telegram.org",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// Secrets missing from the file fall back to environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.applyEnv()
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills secrets from the environment when the file left them empty.
// Env values are never written back to disk.
func (c *Config) applyEnv() {
	if c.Commute.TravelTimeAppID == "" {
		c.Commute.TravelTimeAppID = os.Getenv("TRAVELTIME_APP_ID")
	}
	if c.Commute.TravelTimeKey == "" {
		c.Commute.TravelTimeKey = os.Getenv("TRAVELTIME_API_KEY")
	}
	if c.Commute.GoogleKey == "" {
		c.Commute.GoogleKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if c.Notify.Token == "" {
		c.Notify.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Notify.ChatID == "" {
		c.Notify.ChatID = os.Getenv("TELEGRAM_GROUP_ID")
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# HomeScout Configuration
# ----------------------
# Durations support: ns, us, ms, s, m, h, d (day), w (week)
# Secrets (traveltime_*, google_key, notify token/chat_id) may be left
# empty here and provided via .env / environment instead.

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
