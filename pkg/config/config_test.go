package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return dir
}

func TestResolve_MissingFileUsesDefaults(t *testing.T) {
	r, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Managers != 1 {
		t.Errorf("Managers = %d, want 1", r.Managers)
	}
	if r.TickFloorMs != 1 {
		t.Errorf("TickFloorMs = %d, want 1", r.TickFloorMs)
	}
	if r.LoadThreshold != 1<<24 {
		t.Errorf("LoadThreshold = %d, want %d", r.LoadThreshold, 1<<24)
	}
	if r.NotifyBuffer != 16 {
		t.Errorf("NotifyBuffer = %d, want 16", r.NotifyBuffer)
	}
	if r.EngineAPI != RequiredEngineAPI {
		t.Errorf("EngineAPI = %q, want %q", r.EngineAPI, RequiredEngineAPI)
	}
}

func TestResolve_ReadsValues(t *testing.T) {
	dir := writeConfig(t, `
playback:
  managers: 3
  tick_floor_ms: 5
  load_threshold: 1048576
  notify_buffer: 32
engine:
  api_version: v1.2.0
spell:
  locale: en_US
`)
	r, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Managers != 3 || r.TickFloorMs != 5 || r.NotifyBuffer != 32 {
		t.Errorf("playback = %+v, want managers 3, tick floor 5, buffer 32", r)
	}
	if r.LoadThreshold != 1048576 {
		t.Errorf("LoadThreshold = %d, want 1048576", r.LoadThreshold)
	}
	if r.EngineAPI != "v1.2.0" {
		t.Errorf("EngineAPI = %q, want v1.2.0", r.EngineAPI)
	}
	if r.SpellLocale != "en_US" {
		t.Errorf("SpellLocale = %q, want en_US", r.SpellLocale)
	}
}

func TestResolve_RejectsBadYAML(t *testing.T) {
	dir := writeConfig(t, "playback: [not a mapping")
	if _, err := Resolve(dir); err == nil {
		t.Fatal("Resolve accepted malformed yaml")
	}
}

func TestResolveConfig_EngineAPIValidation(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"", true}, // defaults to RequiredEngineAPI
		{"v1.0.0", true},
		{"v1.9.3", true},
		{"v2.0.0", false},
		{"v0.4.0", false},
		{"1.0.0", false}, // missing v prefix
		{"banana", false},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.Engine.APIVersion = tt.version
		_, err := ResolveConfig(cfg)
		if tt.ok && err != nil {
			t.Errorf("api_version %q: unexpected error %v", tt.version, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("api_version %q: accepted, want rejection", tt.version)
		}
		if !tt.ok && err != nil && !strings.Contains(err.Error(), "api_version") {
			t.Errorf("api_version %q: error %q does not name the field", tt.version, err)
		}
	}
}
