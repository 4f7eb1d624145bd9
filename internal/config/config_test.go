package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePreset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write preset fixture: %v", err)
	}
	return path
}

func TestLoadParsesOptimizeScheduleAndTiles(t *testing.T) {
	path := writePreset(t, `
optimize = true

[schedule]
order = ["i", "j", "k"]

[[tile]]
axis = "i"
size = 32

[[tile]]
axis = "j"
size = 64
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !p.Optimize {
		t.Fatalf("expected Optimize to be true")
	}
	order := p.ScheduleOrder()
	if len(order) != 3 || order[0] != "i" || order[1] != "j" || order[2] != "k" {
		t.Fatalf("unexpected ScheduleOrder: %v", order)
	}
	if len(p.Tiles) != 2 || p.Tiles[0].Axis != "i" || p.Tiles[0].Size != 32 || p.Tiles[1].Axis != "j" || p.Tiles[1].Size != 64 {
		t.Fatalf("unexpected Tiles: %+v", p.Tiles)
	}
}

func TestLoadRejectsTileEntryMissingAxis(t *testing.T) {
	path := writePreset(t, "[[tile]]\nsize = 4\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a [[tile]] entry missing its axis")
	}
}

func TestLoadRejectsNonPositiveTileSize(t *testing.T) {
	path := writePreset(t, "[[tile]]\naxis = \"i\"\nsize = 0\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a non-positive tile size")
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := writePreset(t, "this is not valid toml [[[")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for malformed TOML")
	}
}

func TestLoadPresetOmitsDisabledKnobs(t *testing.T) {
	path := writePreset(t, "optimize = false\n")
	opts, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset returned error: %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("expected no options for an all-disabled preset, got %d", len(opts))
	}
}

func TestLoadPresetReturnsOneOptionPerEnabledKnob(t *testing.T) {
	path := writePreset(t, "optimize = true\n\n[[tile]]\naxis = \"i\"\nsize = 8\n")
	opts, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset returned error: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected 2 options (optimize, tiles), got %d", len(opts))
	}
}
