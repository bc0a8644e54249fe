package config

import (
	"testing"
)

func TestPreferencesDefaults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	prefs, err := store.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if !prefs.HotkeysEnabled {
		t.Error("hotkeys should default to enabled")
	}
	if prefs.VolumeStepDB != 3 {
		t.Errorf("volume step = %d, want 3", prefs.VolumeStepDB)
	}
	if prefs.LastDeviceSerial != "" {
		t.Errorf("last device serial = %q", prefs.LastDeviceSerial)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := &Preferences{
		HotkeysEnabled:   false,
		VolumeStepDB:     6,
		LastDeviceSerial: "S123",
		WindowGeometry:   "800x600+10+10",
	}
	if err := store.SavePreferences(want); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round-trip = %+v, want %+v", got, want)
	}
}

func TestDeviceConfigMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := store.LoadDevice("S999")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial != "S999" {
		t.Errorf("serial = %q", cfg.Serial)
	}
	if cfg.Volumes == nil || cfg.Mutes == nil || cfg.MixerGains == nil {
		t.Error("maps should be initialized")
	}
}

func TestDeviceConfigRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := &DeviceConfig{
		Serial:     "S123",
		Nickname:   "studio rig",
		Volumes:    map[string]int{"0": -20, "1": -6},
		Mutes:      map[string]bool{"0": true},
		MixerGains: map[string]float64{"3": -12.5},
	}
	if err := store.SaveDevice(want); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadDevice("S123")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nickname != want.Nickname {
		t.Errorf("nickname = %q", got.Nickname)
	}
	if got.Volumes["0"] != -20 || got.Volumes["1"] != -6 {
		t.Errorf("volumes = %v", got.Volumes)
	}
	if !got.Mutes["0"] {
		t.Errorf("mutes = %v", got.Mutes)
	}
	if got.MixerGains["3"] != -12.5 {
		t.Errorf("mixer gains = %v", got.MixerGains)
	}
}

func TestDeviceConfigRejectsUnusableSerial(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadDevice(""); err == nil {
		t.Error("empty serial accepted")
	}
	if _, err := store.LoadDevice("Unknown"); err == nil {
		t.Error("placeholder serial accepted")
	}
	if err := store.SaveDevice(&DeviceConfig{Serial: "Unknown"}); err == nil {
		t.Error("placeholder serial accepted on save")
	}
}
