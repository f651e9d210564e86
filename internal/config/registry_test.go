package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "tvlink") {
		t.Errorf("GetConfigDir() = %v, should contain 'tvlink'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "registry.yaml" {
		t.Errorf("GetConfigPath() should end with 'registry.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should be initialized")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should be initialized")
	}
	if !reg.Preferences.AutoDiscover {
		t.Error("NewRegistry() should default AutoDiscover to true")
	}
	if reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("DiscoverTimeout = %d, want 5", reg.Preferences.DiscoverTimeout)
	}
}

func TestEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	dev := reg.EnsureDevice("uuid-1")
	if dev == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	// Second call returns the same entry.
	dev.Name = "Living Room TV"
	again := reg.EnsureDevice("uuid-1")
	if again.Name != "Living Room TV" {
		t.Errorf("EnsureDevice() returned a fresh entry, want the existing one")
	}
}

func TestRecordDevice(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.RecordDevice("uuid-1", "Bedroom Roku", "roku", "192.168.1.50", 8060)

	dev := reg.GetDevice("uuid-1")
	if dev == nil {
		t.Fatal("GetDevice() returned nil after RecordDevice()")
	}
	if dev.Name != "Bedroom Roku" || dev.Brand != "roku" || dev.Address != "192.168.1.50" || dev.Port != 8060 {
		t.Errorf("RecordDevice() stored %+v", dev)
	}
	if dev.LastSeen.Before(before) {
		t.Error("RecordDevice() did not refresh LastSeen")
	}

	// Port zero must not clobber a known working port.
	reg.RecordDevice("uuid-1", "Bedroom Roku", "roku", "192.168.1.50", 0)
	if reg.GetDevice("uuid-1").Port != 8060 {
		t.Errorf("RecordDevice() with port 0 overwrote the stored port")
	}
}

func TestFindByName(t *testing.T) {
	reg := NewRegistry()
	reg.RecordDevice("uuid-1", "Bedroom Roku", "roku", "192.168.1.50", 8060)

	if got := reg.FindByName("Bedroom Roku"); got != "uuid-1" {
		t.Errorf("FindByName() = %q, want uuid-1", got)
	}
	if got := reg.FindByName("Nope"); got != "" {
		t.Errorf("FindByName() = %q, want empty", got)
	}
}
