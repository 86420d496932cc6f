// Package config provides configuration management for snapsync.
// It supports YAML or TOML configuration files, environment variables, and
// sensible defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/snapsync/internal/sync"
	"github.com/klauern/snapsync/internal/util"
)

// Config represents the complete snapsync configuration.
type Config struct {
	// Local configures the device-resident snapshot store
	Local LocalConfig `yaml:"local" toml:"local"`

	// Remote configures the cloud-resident replica
	Remote RemoteConfig `yaml:"remote" toml:"remote"`

	// Connectivity configures reachability polling
	Connectivity ConnectivityConfig `yaml:"connectivity" toml:"connectivity"`

	// Sync configures default synchronization behavior
	Sync SyncConfig `yaml:"sync" toml:"sync"`

	// Backup configures backups taken before destructive resolutions
	Backup BackupConfig `yaml:"backup" toml:"backup"`

	// Cache configures the remote snapshot cache
	Cache CacheConfig `yaml:"cache" toml:"cache"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output"`

	// Server configures `snapsync serve`
	Server ServerConfig `yaml:"server" toml:"server"`
}

// LocalConfig holds local store settings.
type LocalConfig struct {
	// Backend is the store implementation (badger, memory)
	Backend string `yaml:"backend" toml:"backend"`
	// Path is the Badger database directory
	Path string `yaml:"path" toml:"path"`
}

// RemoteConfig holds remote transport settings.
type RemoteConfig struct {
	// Kind selects the transport (http, s3, memory)
	Kind string `yaml:"kind" toml:"kind"`
	// URL is the base URL of a snapsync server (kind http)
	URL string `yaml:"url,omitempty" toml:"url,omitempty"`
	// Token is sent as a bearer credential (kind http)
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`
	// Bucket holds snapshot objects (kind s3)
	Bucket string `yaml:"bucket,omitempty" toml:"bucket,omitempty"`
	// Region overrides the AWS region (kind s3)
	Region string `yaml:"region,omitempty" toml:"region,omitempty"`
	// Prefix is prepended to object keys (kind s3)
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	// Endpoint targets an S3-compatible server (kind s3)
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	// PathStyle forces path-style bucket addressing (kind s3)
	PathStyle bool `yaml:"path_style,omitempty" toml:"path_style,omitempty"`
	// Timeout bounds each remote request
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// ConnectivityConfig holds reachability polling settings.
type ConnectivityConfig struct {
	// Interval is how often the remote is probed
	Interval time.Duration `yaml:"interval" toml:"interval"`
	// ProbeTimeout bounds a single probe
	ProbeTimeout time.Duration `yaml:"probe_timeout" toml:"probe_timeout"`
	// FailureThreshold is how many consecutive failures mean offline
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// DefaultStrategy is the default conflict resolution strategy
	DefaultStrategy string `yaml:"default_strategy" toml:"default_strategy"`
	// AutoResolve applies DefaultStrategy as soon as a conflict is detected
	AutoResolve bool `yaml:"auto_resolve" toml:"auto_resolve"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Enabled enables backups before destructive resolutions
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Location is the backup directory path
	Location string `yaml:"location" toml:"location"`
	// MaxBackups is the maximum number of backups kept per project and side
	MaxBackups int `yaml:"max_backups" toml:"max_backups"`
	// MaxAge removes backups older than this during cleanup
	MaxAge time.Duration `yaml:"max_age" toml:"max_age"`
}

// CacheConfig holds caching settings.
type CacheConfig struct {
	// Enabled enables or disables caching
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// TTL is the time-to-live for cache entries
	TTL time.Duration `yaml:"ttl" toml:"ttl"`
	// Location is the cache directory path
	Location string `yaml:"location" toml:"location"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Format is the default output format (table, json, yaml)
	Format string `yaml:"format" toml:"format"`
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// ServerConfig holds settings for the remote replica server.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr" toml:"addr"`
	// DBPath is the SQLite database file
	DBPath string `yaml:"db_path" toml:"db_path"`
	// Token, when set, is required from every client
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Local: LocalConfig{
			Backend: "badger",
			Path:    util.StorePath(),
		},
		Remote: RemoteConfig{
			Kind:    "http",
			URL:     "http://127.0.0.1:7420",
			Timeout: 30 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			Interval:         30 * time.Second,
			ProbeTimeout:     5 * time.Second,
			FailureThreshold: 2,
		},
		Sync: SyncConfig{
			DefaultStrategy: string(sync.StrategySmart),
		},
		Backup: BackupConfig{
			Enabled:    true,
			Location:   util.BackupsPath(),
			MaxBackups: 10,
			MaxAge:     30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      7 * 24 * time.Hour,
			Location: util.CachePath(),
		},
		Output: OutputConfig{
			Format: "table",
			Color:  "auto",
		},
		Server: ServerConfig{
			Addr:   ":7420",
			DBPath: util.ServerDBPath(),
		},
	}
}

// configFileNames are searched in order inside the snapsync home.
var configFileNames = []string{"config.yaml", "config.yml", "config.toml"}

// FilePath returns the path to the config file. When none exists it
// returns the YAML location new files are written to.
func FilePath() string {
	home := util.SnapsyncHome()
	for _, name := range configFileNames {
		p := filepath.Join(home, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(home, configFileNames[0])
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(FilePath())
	if os.IsNotExist(err) {
		cfg = Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return cfg, err
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path, as TOML when the
// extension is .toml and YAML otherwise.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return err
		}
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Local.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("local.backend must be badger or memory, got %q", c.Local.Backend)
	}
	switch c.Remote.Kind {
	case "http":
		if c.Remote.URL == "" {
			return fmt.Errorf("remote.url is required for the http remote")
		}
	case "s3":
		if c.Remote.Bucket == "" {
			return fmt.Errorf("remote.bucket is required for the s3 remote")
		}
	case "memory":
	default:
		return fmt.Errorf("remote.kind must be http, s3 or memory, got %q", c.Remote.Kind)
	}
	if _, err := sync.ParseStrategy(c.Sync.DefaultStrategy); err != nil {
		return fmt.Errorf("sync.default_strategy: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern SNAPSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Local store
	if v := os.Getenv("SNAPSYNC_LOCAL_BACKEND"); v != "" {
		c.Local.Backend = v
	}
	if v := os.Getenv("SNAPSYNC_LOCAL_PATH"); v != "" {
		c.Local.Path = util.ExpandPath(v)
	}

	// Remote
	if v := os.Getenv("SNAPSYNC_REMOTE_KIND"); v != "" {
		c.Remote.Kind = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_URL"); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_TOKEN"); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_BUCKET"); v != "" {
		c.Remote.Bucket = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_REGION"); v != "" {
		c.Remote.Region = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_PREFIX"); v != "" {
		c.Remote.Prefix = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_ENDPOINT"); v != "" {
		c.Remote.Endpoint = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		}
	}

	// Connectivity
	if v := os.Getenv("SNAPSYNC_CONNECTIVITY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Connectivity.Interval = d
		}
	}
	if v := os.Getenv("SNAPSYNC_CONNECTIVITY_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Connectivity.FailureThreshold = n
		}
	}

	// Sync settings
	if v := os.Getenv("SNAPSYNC_SYNC_STRATEGY"); v != "" {
		c.Sync.DefaultStrategy = v
	}
	if v := os.Getenv("SNAPSYNC_SYNC_AUTO_RESOLVE"); v != "" {
		c.Sync.AutoResolve = parseBool(v)
	}

	// Backup settings
	if v := os.Getenv("SNAPSYNC_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}
	if v := os.Getenv("SNAPSYNC_BACKUP_LOCATION"); v != "" {
		c.Backup.Location = util.ExpandPath(v)
	}

	// Cache settings
	if v := os.Getenv("SNAPSYNC_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("SNAPSYNC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("SNAPSYNC_CACHE_LOCATION"); v != "" {
		c.Cache.Location = util.ExpandPath(v)
	}

	// Output settings
	if v := os.Getenv("SNAPSYNC_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("SNAPSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("SNAPSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}

	// Server settings
	if v := os.Getenv("SNAPSYNC_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SNAPSYNC_SERVER_DB_PATH"); v != "" {
		c.Server.DBPath = util.ExpandPath(v)
	}
	if v := os.Getenv("SNAPSYNC_SERVER_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// GetStrategy returns the default merge strategy, falling back to smart
// when the configured name is not recognized.
func (c *Config) GetStrategy() sync.Strategy {
	if strategy, err := sync.ParseStrategy(c.Sync.DefaultStrategy); err == nil {
		return strategy
	}
	return sync.StrategySmart
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
