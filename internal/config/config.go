// Package config loads and validates the node configuration: the
// accepted timestamp window, pool topology, and ambient logging
// settings (spec §6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PeerConfig is one remote pool's address, keyed by pool id in Config.Peers.
type PeerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls the logger sink and verbosity (spec ambient stack).
type LogConfig struct {
	Level   string `yaml:"level"`
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
}

// Config is this node's complete configuration. Unlike the original
// migration tool's deeply nested Source/Target/Proxy/Migrate tree, this
// node only needs a flat set of insert-pipeline knobs, so it is
// unmarshaled straight from YAML instead of through the teacher's
// hand-rolled indent-tracking parser (see DESIGN.md).
type Config struct {
	ListenAddr      string                `yaml:"listen_addr"`
	LocalPoolID     uint16                `yaml:"local_pool_id"`
	PoolCount       int                   `yaml:"pool_count"`
	TsMin           int64                 `yaml:"ts_min"`
	TsMax           int64                 `yaml:"ts_max"`
	InsertTimeoutMs int64                 `yaml:"insert_timeout_ms"`
	Peers           map[uint16]PeerConfig `yaml:"peers"`
	Log             LogConfig             `yaml:"log"`

	path string
}

// ValidationError collects every configuration problem found at once,
// rather than failing on the first (mirrors the teacher's ValidationError).
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	for _, err := range e.Errors {
		b.WriteString("\n - ")
		b.WriteString(err)
	}
	return b.String()
}

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg.path = absPath
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in listen_addr, pool_count, ts_max,
// insert_timeout_ms, log.level and peers where the file left them at
// their zero value; every other field keeps whatever the file gave it.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9321"
	}
	if c.PoolCount <= 0 {
		c.PoolCount = 1
	}
	if c.TsMax == 0 {
		c.TsMax = 4_102_444_800_000 // year 2100, ms
	}
	if c.InsertTimeoutMs <= 0 {
		c.InsertTimeoutMs = 15000 // spec §6 default
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Peers == nil {
		c.Peers = make(map[uint16]PeerConfig)
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.PoolCount < 1 {
		errs = append(errs, "pool_count must be >= 1")
	}
	if int(c.LocalPoolID) >= c.PoolCount {
		errs = append(errs, fmt.Sprintf("local_pool_id %d must be < pool_count %d", c.LocalPoolID, c.PoolCount))
	}
	if c.TsMin > c.TsMax {
		errs = append(errs, fmt.Sprintf("ts_min %d must be <= ts_max %d", c.TsMin, c.TsMax))
	}
	if c.InsertTimeoutMs <= 0 {
		errs = append(errs, "insert_timeout_ms must be > 0")
	}
	for poolID, peer := range c.Peers {
		if int(poolID) >= c.PoolCount {
			errs = append(errs, fmt.Sprintf("peers: pool id %d is outside pool_count %d", poolID, c.PoolCount))
		}
		if peer.Addr == "" {
			errs = append(errs, fmt.Sprintf("peers[%d].addr must not be empty", poolID))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug/info/warn/error", c.Log.Level))
	}

	if len(errs) > 0 {
		return &ValidationError{Path: c.path, Errors: errs}
	}
	return nil
}

// Path returns the absolute path the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Summary is a one-line overview suitable for a startup log line.
func (c *Config) Summary() string {
	return fmt.Sprintf("listen=%s local_pool=%d pool_count=%d insert_timeout_ms=%d ts_range=[%d,%d] peers=%d",
		c.ListenAddr, c.LocalPoolID, c.PoolCount, c.InsertTimeoutMs, c.TsMin, c.TsMax, len(c.Peers))
}
