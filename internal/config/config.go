// Package config loads emulator settings from a YAML file, SMRSIM_ environment
// variables and bound command-line flags, and reloads them when the file
// changes.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/policy"
	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config is the complete emulator configuration.
type Config struct {
	Device      DeviceSettings      `mapstructure:"device"`
	Zone        ZoneSettings        `mapstructure:"zone"`
	Persistence PersistenceSettings `mapstructure:"persistence"`
	Policy      PolicySettings      `mapstructure:"policy"`
	Research    ResearchSettings    `mapstructure:"research"`
	Log         LogSettings         `mapstructure:"log"`
	Metrics     MetricsSettings     `mapstructure:"metrics"`
}

// DeviceSettings locates the backing image.
type DeviceSettings struct {
	// Path of the backing image file.
	Path string `mapstructure:"path"`

	// CapacitySectors is the emulated capacity. Zero derives it from the image size.
	CapacitySectors uint64 `mapstructure:"capacity_sectors"`

	// Create creates the image when it does not exist.
	Create bool `mapstructure:"create"`

	// CachePages bounds the page cache of the file device.
	CachePages int `mapstructure:"cache_pages"`
}

// ZoneSettings holds the default zone geometry.
type ZoneSettings struct {
	DefaultSectors uint32 `mapstructure:"default_sectors"`
}

// PersistenceSettings controls the background flush worker.
type PersistenceSettings struct {
	// Interval between dirty-state polls.
	Interval time.Duration `mapstructure:"interval"`

	// Schedule is an optional cron spec forcing a full checkpoint.
	Schedule string `mapstructure:"schedule"`
}

// PolicySettings seeds the device configuration when no state is persisted.
type PolicySettings struct {
	ReadPermit     bool   `mapstructure:"read_permit"`
	WritePermit    bool   `mapstructure:"write_permit"`
	ReadPenaltyMs  uint16 `mapstructure:"read_penalty_ms"`
	WritePenaltyMs uint16 `mapstructure:"write_penalty_ms"`
}

// ResearchSettings holds the write pointer research overrides. They are
// applied when a device is attached and are never persisted with its state.
type ResearchSettings struct {
	BackwardReset bool `mapstructure:"backward_reset"`
	ForwardAdjust bool `mapstructure:"forward_adjust"`

	// BorderCrossMatch is "exact" or "bitmask".
	BorderCrossMatch string `mapstructure:"border_cross_match"`
}

// LogSettings selects the logger.
type LogSettings struct {
	Mode  string `mapstructure:"mode"`
	Debug bool   `mapstructure:"debug"`
}

// MetricsSettings toggles metric recording.
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// DeviceConfig returns the policy settings as a device configuration.
func (c *Config) DeviceConfig() types.DeviceConfig {
	return types.DeviceConfig{
		OutOfPolicyRead:    types.BoolFlag(c.Policy.ReadPermit),
		OutOfPolicyWrite:   types.BoolFlag(c.Policy.WritePermit),
		ReadPenaltyMillis:  c.Policy.ReadPenaltyMs,
		WritePenaltyMillis: c.Policy.WritePenaltyMs,
	}
}

// ResearchOptions returns the research settings as policy options.
func (c *Config) ResearchOptions() policy.Options {
	opts := policy.Options{
		BackwardReset: c.Research.BackwardReset,
		ForwardAdjust: c.Research.ForwardAdjust,
	}
	if strings.EqualFold(c.Research.BorderCrossMatch, policy.MatchBitmask.String()) {
		opts.BorderCrossMatch = policy.MatchBitmask
	}
	return opts
}

// Validate checks every setting that has a bounded range.
func (c *Config) Validate() error {
	if c.Device.CapacitySectors > types.MaxCapacitySectors {
		return fmt.Errorf("device.capacity_sectors %d exceeds maximum %d", c.Device.CapacitySectors, types.MaxCapacitySectors)
	}
	if z := c.Zone.DefaultSectors; z != 0 && (!types.IsPowerOfTwo(uint64(z)) || z%types.BlockSectors != 0) {
		return fmt.Errorf("zone.default_sectors %d must be a power of two and a multiple of %d", z, types.BlockSectors)
	}
	if c.Persistence.Interval <= 0 {
		return fmt.Errorf("persistence.interval must be positive, got %s", c.Persistence.Interval)
	}
	if c.Persistence.Schedule != "" {
		if _, err := cron.ParseStandard(c.Persistence.Schedule); err != nil {
			return fmt.Errorf("persistence.schedule: %w", err)
		}
	}
	if c.Policy.ReadPenaltyMs >= types.MaxPenaltyMillis || c.Policy.WritePenaltyMs >= types.MaxPenaltyMillis {
		return fmt.Errorf("policy penalties must be below %d ms", types.MaxPenaltyMillis)
	}
	switch strings.ToLower(c.Research.BorderCrossMatch) {
	case "", policy.MatchExact.String(), policy.MatchBitmask.String():
	default:
		return fmt.Errorf("research.border_cross_match must be %q or %q, got %q",
			policy.MatchExact, policy.MatchBitmask, c.Research.BorderCrossMatch)
	}
	if c.Device.CachePages < 0 {
		return fmt.Errorf("device.cache_pages must not be negative")
	}
	return nil
}

// Loader reads configuration through a private viper instance.
type Loader struct {
	mu sync.Mutex
	v  *viper.Viper
}

// NewLoader returns a loader with every default registered.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SMRSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.path", "smrsim.img")
	v.SetDefault("device.capacity_sectors", 0)
	v.SetDefault("device.create", false)
	v.SetDefault("device.cache_pages", 64)
	v.SetDefault("zone.default_sectors", types.DefaultZoneSectors)
	v.SetDefault("persistence.interval", time.Second)
	v.SetDefault("persistence.schedule", "")
	v.SetDefault("policy.read_permit", false)
	v.SetDefault("policy.write_permit", false)
	v.SetDefault("policy.read_penalty_ms", types.DefaultPenaltyMillis)
	v.SetDefault("policy.write_penalty_ms", types.DefaultPenaltyMillis)
	v.SetDefault("research.backward_reset", false)
	v.SetDefault("research.forward_adjust", false)
	v.SetDefault("research.border_cross_match", "exact")
	v.SetDefault("log.mode", "prod")
	v.SetDefault("log.debug", false)
	v.SetDefault("metrics.enabled", true)
}

// Viper exposes the underlying instance so command-line flags can be bound.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the file at path, or searches the standard locations for
// smrsim.yaml when path is empty. A missing file in the search locations is
// not an error.
func (l *Loader) Load(path string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("smrsim")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./config")
		l.v.AddConfigPath("$HOME/.smrsim")
		l.v.AddConfigPath("/etc/smrsim")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

// File returns the config file in use, if any.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the configuration whenever the file changes and hands the
// result to onChange. Invalid reloads are passed as errors and the previous
// configuration stays in effect.
func (l *Loader) Watch(onChange func(*Config, fsnotify.Event, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		onChange(cfg, e, err)
	})
	l.v.WatchConfig()
}
