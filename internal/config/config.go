// Package config loads startup settings from defaults, an optional config
// file, ORRERY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/pointcloud"
	"github.com/litescript/ls-orrery/internal/scale"
)

// EnvPrefix prefixes every environment override, e.g. ORRERY_QUALITY.
const EnvPrefix = "ORRERY"

// ErrUnknownTier is returned for quality names that are neither a tier
// nor "auto".
var ErrUnknownTier = perf.ErrUnknownTier

// Ephemeris sources.
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourceHorizons = "horizons"
)

// Config is read once at startup.
type Config struct {
	Quality            string          `mapstructure:"quality"`
	Device             perf.DeviceInfo `mapstructure:"device"`
	Seed               int64           `mapstructure:"seed"`
	SeedPreset         string          `mapstructure:"seed_preset"`
	StaticFrame        bool            `mapstructure:"static_frame"`
	AutoRotate         bool            `mapstructure:"autorotate"`
	AdaptiveResolution bool            `mapstructure:"adaptive_resolution"`
	WorkerClouds       bool            `mapstructure:"worker_clouds"`
	Profile            string          `mapstructure:"profile"`
	DataMode           string          `mapstructure:"data_mode"`
	PositionMode       string          `mapstructure:"position_mode"`
	LogLevel           string          `mapstructure:"log_level"`
	LayersFile         string          `mapstructure:"layers_file"`

	Ephemeris  Ephemeris        `mapstructure:"ephemeris"`
	Benchmark  Benchmark        `mapstructure:"benchmark"`
	Metrics    Listen           `mapstructure:"metrics"`
	Bridge     Listen           `mapstructure:"bridge"`
	Telemetry  Telemetry        `mapstructure:"telemetry"`
	Thresholds scale.Thresholds `mapstructure:"thresholds"`
}

// Ephemeris selects where Accurate snapshots come from.
type Ephemeris struct {
	Source  string        `mapstructure:"source"`
	URL     string        `mapstructure:"url"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Benchmark configures benchmark mode.
type Benchmark struct {
	Enabled  bool          `mapstructure:"enabled"`
	Warmup   time.Duration `mapstructure:"warmup"`
	Duration time.Duration `mapstructure:"duration"`
}

// Listen is a network listener address; empty disables it.
type Listen struct {
	Addr string `mapstructure:"addr"`
}

// Telemetry lists the enabled event sinks.
type Telemetry struct {
	Log        bool   `mapstructure:"log"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Endpoint   string `mapstructure:"endpoint"`
	Influx     Influx `mapstructure:"influx"`
}

// Influx locates an InfluxDB v2 bucket; an empty URL disables it.
type Influx struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	th := scale.DefaultThresholds()

	v.SetDefault("quality", "auto")
	v.SetDefault("device.memorygb", 0)
	v.SetDefault("device.cores", 0)
	v.SetDefault("device.mobile", false)
	v.SetDefault("device.pixelratio", 1)
	v.SetDefault("seed", 0)
	v.SetDefault("seed_preset", "")
	v.SetDefault("static_frame", false)
	v.SetDefault("autorotate", true)
	v.SetDefault("adaptive_resolution", true)
	v.SetDefault("worker_clouds", true)
	v.SetDefault("profile", "optimized")
	v.SetDefault("data_mode", "educational")
	v.SetDefault("position_mode", "sim")
	v.SetDefault("log_level", "info")
	v.SetDefault("layers_file", "")

	v.SetDefault("ephemeris.source", SourceFile)
	v.SetDefault("ephemeris.url", "")
	v.SetDefault("ephemeris.path", "data/ephemeris/latest.json")
	v.SetDefault("ephemeris.timeout", 30*time.Second)

	v.SetDefault("benchmark.enabled", false)
	v.SetDefault("benchmark.warmup", perf.DefaultBenchWarmup)
	v.SetDefault("benchmark.duration", perf.DefaultBenchDuration)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("bridge.addr", "")

	v.SetDefault("telemetry.log", false)
	v.SetDefault("telemetry.sqlite_path", "")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.influx.url", "")
	v.SetDefault("telemetry.influx.token", "")
	v.SetDefault("telemetry.influx.org", "")
	v.SetDefault("telemetry.influx.bucket", "")

	v.SetDefault("thresholds.galaxy_start", th.GalaxyStart)
	v.SetDefault("thresholds.galaxy_full", th.GalaxyFull)
	v.SetDefault("thresholds.galaxy_margin", th.GalaxyMargin)
	v.SetDefault("thresholds.universe_start", th.UniverseStart)
	v.SetDefault("thresholds.universe_full", th.UniverseFull)
	v.SetDefault("thresholds.universe_margin", th.UniverseMargin)
	v.SetDefault("thresholds.solar_hide", th.SolarHide)
	v.SetDefault("thresholds.solar_show", th.SolarShow)
	v.SetDefault("thresholds.belt_min", th.BeltMin)
	v.SetDefault("thresholds.belt_max", th.BeltMax)
	v.SetDefault("thresholds.kuiper_min", th.KuiperMin)
	v.SetDefault("thresholds.kuiper_max", th.KuiperMax)
	v.SetDefault("thresholds.legacy_galaxy", th.LegacyGalaxy)
	v.SetDefault("thresholds.legacy_universe", th.LegacyUniverse)
}

// NewViper returns a viper instance with defaults and environment
// overrides wired. Nested keys map to ORRERY_SECTION_KEY.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the
// result. Flags must already be bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	if _, err := c.Tier(); err != nil {
		return err
	}
	if _, err := c.ResolveSeed(); err != nil {
		return err
	}
	if _, err := c.RenderProfile(); err != nil {
		return err
	}
	if _, err := orbit.ParseDataMode(c.DataMode); err != nil {
		return err
	}
	if _, err := orbit.ParsePositionMode(c.PositionMode); err != nil {
		return err
	}
	switch c.Ephemeris.Source {
	case SourceFile, SourceHorizons:
	case SourceHTTP:
		if c.Ephemeris.URL == "" {
			return errors.New("ephemeris source http needs ephemeris.url")
		}
	default:
		return fmt.Errorf("unknown ephemeris source %q", c.Ephemeris.Source)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// Tier resolves the quality setting; "auto" infers it from the device.
func (c *Config) Tier() (perf.Tier, error) {
	if q := strings.ToLower(strings.TrimSpace(c.Quality)); q == "" || q == "auto" {
		return perf.InferTier(c.Device), nil
	}
	return perf.ParseTier(c.Quality)
}

// ResolveSeed returns the scene seed; zero means unseeded.
func (c *Config) ResolveSeed() (uint32, error) {
	return pointcloud.ResolveSeed(c.Seed, c.SeedPreset)
}

// Modes returns the initial position and data modes.
func (c *Config) Modes() (orbit.PositionMode, orbit.DataMode) {
	pm, _ := orbit.ParsePositionMode(c.PositionMode)
	dm, _ := orbit.ParseDataMode(c.DataMode)
	return pm, dm
}

// RenderProfile is the set of behaviors selected once from the profile
// name.
type RenderProfile struct {
	Name string
	// Legacy disables the optimized paths.
	Legacy   bool
	Strategy scale.Strategy
}

// RenderProfile derives the profile from the profile setting.
func (c *Config) RenderProfile() (RenderProfile, error) {
	s, err := scale.NewStrategy(c.Profile)
	if err != nil {
		return RenderProfile{}, err
	}
	_, legacy := s.(scale.Legacy)
	return RenderProfile{Name: s.Name(), Legacy: legacy, Strategy: s}, nil
}

// Layers loads the scale layers file, or the defaults when none is set.
func (c *Config) Layers() ([]scale.Layer, error) {
	if c.LayersFile == "" {
		return scale.DefaultLayers(), nil
	}
	f, err := os.Open(c.LayersFile)
	if err != nil {
		return nil, fmt.Errorf("open layers file: %w", err)
	}
	defer f.Close()
	return scale.LoadLayers(f)
}
