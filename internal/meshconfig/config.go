// Package meshconfig loads and persists the on-disk MLE configuration:
// the master key, network identity, radio parameters, and the handful of
// tunable timers: a single YAML-tagged struct, loaded once at startup and
// re-written atomically on every change.
package meshconfig

import (
	"encoding/hex"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrBadMasterKey is returned when the configured master key is not exactly
// 32 bytes of hex.
const ErrBadMasterKey errors.Error = "meshconfig: master key must be 64 hex characters"

// Config is loaded from and saved to a single YAML file. Field ordering
// mirrors the on-disk layout.
type Config struct {
	// MasterKeyHex is the network master key, 32 bytes hex-encoded.
	MasterKeyHex string `yaml:"master_key"`

	NetworkName string `yaml:"network_name"`
	PanID       uint16 `yaml:"pan_id"`
	Channel     uint8  `yaml:"channel"`

	LeaderWeight           uint8 `yaml:"leader_weight"`
	NetworkIDTimeoutSec    int   `yaml:"network_id_timeout_seconds"`
	RouterUpgradeThreshold int   `yaml:"router_upgrade_threshold"`
	ContextIDReuseDelaySec int   `yaml:"context_id_reuse_delay_seconds"`

	Interface string `yaml:"interface"`

	Log LogSettings `yaml:"log"`

	// path is the file this Config was loaded from, retained so Save can
	// write back to the same place. It is not serialized.
	path string `yaml:"-"`
}

// LogSettings holds file rotation parameters handed straight to
// lumberjack.
type LogSettings struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Verbose    bool   `yaml:"verbose"`
}

// Default returns the configuration a freshly formed network starts from.
func Default() *Config {
	return &Config{
		NetworkName:            "mle-network",
		PanID:                  0x1234,
		Channel:                15,
		LeaderWeight:           64,
		NetworkIDTimeoutSec:    120,
		RouterUpgradeThreshold: 4,
		ContextIDReuseDelaySec: 48 * 60 * 60,
		Log: LogSettings{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads and parses the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "meshconfig: reading %q: %w", path)
	}

	c := Default()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Annotate(err, "meshconfig: parsing %q: %w", path)
	}
	c.path = path

	return c, nil
}

// Save atomically rewrites the configuration to its source path via
// renameio: write to a temp file in the same directory, fsync, then
// rename over the original.
func (c *Config) Save() (err error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Annotate(err, "meshconfig: marshaling: %w")
	}

	return renameio.WriteFile(c.path, data, 0o600)
}

// MasterKey decodes the configured hex master key into the 32-byte form
// [mlecrypto.KeyManager] expects.
func (c *Config) MasterKey() (key [32]byte, err error) {
	decoded, err := hex.DecodeString(c.MasterKeyHex)
	if err != nil || len(decoded) != len(key) {
		return key, ErrBadMasterKey
	}
	copy(key[:], decoded)
	return key, nil
}

// SetMasterKey re-encodes and installs a new master key, ready for Save.
func (c *Config) SetMasterKey(key [32]byte) {
	c.MasterKeyHex = hex.EncodeToString(key[:])
}
