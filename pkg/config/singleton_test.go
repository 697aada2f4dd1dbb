package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetConfigAndGetConfigRoundTrip(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	SetConfig(cfg)
	defer SetConfig(nil)

	got := GetConfig()
	if got == nil || got.Logging.Level != "debug" {
		t.Fatalf("expected round-tripped config, got %+v", got)
	}
}

func TestMustGetConfigPanicsWhenUninitialized(t *testing.T) {
	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when config uninitialized")
		}
	}()
	MustGetConfig()
}

func TestReloadConfigReplacesGlobalOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	defer SetConfig(nil)

	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
	if GetConfig().Logging.Level != "warn" {
		t.Fatalf("expected reloaded level warn, got %q", GetConfig().Logging.Level)
	}
}

func TestReloadConfigLeavesExistingConfigOnFailure(t *testing.T) {
	original := &Config{Logging: LoggingConfig{Level: "info"}}
	SetConfig(original)
	defer SetConfig(nil)

	if err := ReloadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error reloading nonexistent file")
	}
	if GetConfig().Logging.Level != "info" {
		t.Fatalf("expected config unchanged after failed reload, got %q", GetConfig().Logging.Level)
	}
}
