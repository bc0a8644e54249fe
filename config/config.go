// Package config is the on-disk preferences store: one global preferences
// file plus one file per device keyed by serial. Files are YAML and live in
// a single configuration directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/scarlett-tools/scarlettd/core"
)

const (
	prefsFileName = "preferences"
	fileType      = "yaml"
)

// Preferences are the application-wide settings.
type Preferences struct {
	HotkeysEnabled   bool   `mapstructure:"hotkeys_enabled"`
	VolumeStepDB     int    `mapstructure:"volume_step_db"`
	LastDeviceSerial string `mapstructure:"last_device_serial"`
	WindowGeometry   string `mapstructure:"window_geometry"`
}

// DeviceConfig holds the persisted per-device state, written to
// device-<serial>.yaml next to the preferences file.
type DeviceConfig struct {
	Serial     string             `mapstructure:"serial"`
	Nickname   string             `mapstructure:"nickname"`
	Volumes    map[string]int     `mapstructure:"volumes"` // output index -> dB
	Mutes      map[string]bool    `mapstructure:"mutes"`
	MixerGains map[string]float64 `mapstructure:"mixer_gains"` // channel index -> dB
}

// Store reads and writes the configuration directory. All methods are safe
// for a single caller; the store does no locking of its own.
type Store struct {
	dir string
}

// NewStore opens (and if needed creates) the configuration directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &core.ConfigError{Msg: "creating config directory", Err: err}
	}
	return &Store{dir: dir}, nil
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", &core.ConfigError{Msg: "resolving user config directory", Err: err}
	}
	return filepath.Join(base, "scarlettd"), nil
}

func (s *Store) newViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType(fileType)
	v.AddConfigPath(s.dir)
	return v
}

func setPrefsDefaults(v *viper.Viper) {
	v.SetDefault("hotkeys_enabled", true)
	v.SetDefault("volume_step_db", 3)
	v.SetDefault("last_device_serial", "")
	v.SetDefault("window_geometry", "")
}

// LoadPreferences reads the global preferences. A missing file is not an
// error; defaults apply.
func (s *Store) LoadPreferences() (*Preferences, error) {
	v := s.newViper(prefsFileName)
	setPrefsDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &core.ConfigError{Msg: "reading preferences", Err: err}
		}
	}

	var prefs Preferences
	if err := v.Unmarshal(&prefs); err != nil {
		return nil, &core.ConfigError{Msg: "parsing preferences", Err: err}
	}
	return &prefs, nil
}

// SavePreferences writes the global preferences file.
func (s *Store) SavePreferences(prefs *Preferences) error {
	v := s.newViper(prefsFileName)
	v.Set("hotkeys_enabled", prefs.HotkeysEnabled)
	v.Set("volume_step_db", prefs.VolumeStepDB)
	v.Set("last_device_serial", prefs.LastDeviceSerial)
	v.Set("window_geometry", prefs.WindowGeometry)

	path := filepath.Join(s.dir, prefsFileName+"."+fileType)
	if err := v.WriteConfigAs(path); err != nil {
		return &core.ConfigError{Msg: "writing preferences", Err: err}
	}
	return nil
}

func deviceFileName(serial string) string {
	return "device-" + serial
}

// LoadDevice reads the persisted state for one device serial. A missing
// file yields an empty config for that serial, not an error.
func (s *Store) LoadDevice(serial string) (*DeviceConfig, error) {
	if serial == "" || serial == "Unknown" {
		return nil, &core.ConfigError{Msg: "device has no usable serial"}
	}

	v := s.newViper(deviceFileName(serial))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return &DeviceConfig{
				Serial:     serial,
				Volumes:    map[string]int{},
				Mutes:      map[string]bool{},
				MixerGains: map[string]float64{},
			}, nil
		}
		return nil, &core.ConfigError{Msg: fmt.Sprintf("reading device config %q", serial), Err: err}
	}

	var cfg DeviceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &core.ConfigError{Msg: fmt.Sprintf("parsing device config %q", serial), Err: err}
	}
	cfg.Serial = serial
	if cfg.Volumes == nil {
		cfg.Volumes = map[string]int{}
	}
	if cfg.Mutes == nil {
		cfg.Mutes = map[string]bool{}
	}
	if cfg.MixerGains == nil {
		cfg.MixerGains = map[string]float64{}
	}
	return &cfg, nil
}

// SaveDevice writes the state file for one device serial.
func (s *Store) SaveDevice(cfg *DeviceConfig) error {
	if cfg.Serial == "" || cfg.Serial == "Unknown" {
		return &core.ConfigError{Msg: "device has no usable serial"}
	}

	v := s.newViper(deviceFileName(cfg.Serial))
	v.Set("serial", cfg.Serial)
	v.Set("nickname", cfg.Nickname)
	v.Set("volumes", cfg.Volumes)
	v.Set("mutes", cfg.Mutes)
	v.Set("mixer_gains", cfg.MixerGains)

	path := filepath.Join(s.dir, deviceFileName(cfg.Serial)+"."+fileType)
	if err := v.WriteConfigAs(path); err != nil {
		return &core.ConfigError{Msg: fmt.Sprintf("writing device config %q", cfg.Serial), Err: err}
	}
	return nil
}
