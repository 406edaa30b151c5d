package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/pvpguard/internal/storage/redis"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "PVPGUARD_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath is set.
const DefaultPath = "config/pvpguard.yaml"

// Storage backend names.
const (
	BackendJSON     = "json"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds all configuration for the pvpguard server.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Storage   Storage   `yaml:"storage"`
	Mode      Mode      `yaml:"mode"`
	Zone      Zone      `yaml:"zone"`
	Policy    Policy    `yaml:"policy"`
	Broadcast Broadcast `yaml:"broadcast"`
	Bridge    Bridge    `yaml:"bridge"`
	Admin     Admin     `yaml:"admin"`
	Audit     Audit     `yaml:"audit"`
	Notify    Notify    `yaml:"notify"`
}

// Storage selects and configures the mode record backend.
type Storage struct {
	Backend     string         `yaml:"backend"`
	JSONPath    string         `yaml:"json_path"`
	SQLitePath  string         `yaml:"sqlite_path"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       redis.Config   `yaml:"redis"`
	SaveTimeout time.Duration  `yaml:"save_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Mode holds the mode transition timings.
type Mode struct {
	SwitchCooldown      time.Duration `yaml:"switch_cooldown"`
	InactivityThreshold time.Duration `yaml:"inactivity_threshold"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
}

// Zone configures base proximity.
type Zone struct {
	Radius        float64       `yaml:"radius"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Policy lists the authorization rules in evaluation order.
type Policy struct {
	Rules []string `yaml:"rules"`
}

// Broadcast configures the periodic help reminder.
type Broadcast struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Bridge configures the engine websocket endpoint.
type Bridge struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	JWTSecret   string `yaml:"jwt_secret"`

	// Per-connection inbound message rate.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	WriteTimeout  time.Duration `yaml:"write_timeout"`
	PongTimeout   time.Duration `yaml:"pong_timeout"`
	SendQueueSize int           `yaml:"send_queue_size"`
}

// Admin configures the read-only HTTP API.
type Admin struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	// TokenHash is the bcrypt hash of the admin bearer token.
	TokenHash string `yaml:"token_hash"`
}

// Audit configures the decision trail.
type Audit struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	LogAllowed bool   `yaml:"log_allowed"`
}

// Notify configures extra notice sinks.
type Notify struct {
	// RedisPublish mirrors notices to Redis pub/sub using storage.redis settings.
	RedisPublish bool   `yaml:"redis_publish"`
	RedisChannel string `yaml:"redis_channel"`
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Storage: Storage{
			Backend:    BackendJSON,
			JSONPath:   "data/pve_pvp_data.json",
			SQLitePath: "data/pvpguard.db",
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "pvpguard",
				Password: "pvpguard",
				DBName:   "pvpguard",
				SSLMode:  "disable",
			},
			Redis:       redis.DefaultConfig(),
			SaveTimeout: 5 * time.Second,
		},
		Mode: Mode{
			SwitchCooldown:      96 * time.Hour,
			InactivityThreshold: 25 * time.Hour,
			SweepInterval:       100 * time.Second,
		},
		Zone: Zone{
			Radius:        50,
			SweepInterval: 2 * time.Second,
		},
		Policy: Policy{
			Rules: []string{"structure", "mode", "zone"},
		},
		Broadcast: Broadcast{
			Enabled:  true,
			Interval: 900 * time.Second,
		},
		Bridge: Bridge{
			BindAddress:   "127.0.0.1",
			Port:          7780,
			RateLimit:     500,
			RateBurst:     1000,
			WriteTimeout:  5 * time.Second,
			PongTimeout:   60 * time.Second,
			SendQueueSize: 256,
		},
		Admin: Admin{
			Enabled:     true,
			BindAddress: "127.0.0.1",
			Port:        7781,
		},
		Audit: Audit{
			Enabled: true,
			Dir:     "data/audit",
		},
		Notify: Notify{
			RedisChannel: "pvpguard:notices",
		},
	}
}

// Load loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// ResolvePath returns flagPath, else $PVPGUARD_CONFIG, else DefaultPath.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON:
		if c.Storage.JSONPath == "" {
			return fmt.Errorf("storage.json_path is required for the json backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"mode.switch_cooldown", c.Mode.SwitchCooldown},
		{"mode.inactivity_threshold", c.Mode.InactivityThreshold},
		{"mode.sweep_interval", c.Mode.SweepInterval},
		{"zone.sweep_interval", c.Zone.SweepInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}

	if c.Zone.Radius <= 0 {
		return fmt.Errorf("zone.radius must be positive, got %g", c.Zone.Radius)
	}
	if c.Broadcast.Enabled && c.Broadcast.Interval <= 0 {
		return fmt.Errorf("broadcast.interval must be positive when enabled")
	}
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port out of range: %d", c.Bridge.Port)
	}
	if c.Admin.Enabled && (c.Admin.Port <= 0 || c.Admin.Port > 65535) {
		return fmt.Errorf("admin.port out of range: %d", c.Admin.Port)
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("audit.dir is required when audit is enabled")
	}
	return nil
}
