// Package config loads reusable scheduling presets from TOML
// (SPEC_FULL.md §6), mirroring the teacher's
// cmd/surge/project_manifest.go manifest-loading idiom — decode with
// github.com/BurntSushi/toml into a tagged struct, then validate the
// decoded fields — but scoped to the handful of compiler options
// Compile accepts rather than a whole project manifest.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"loopoly"
)

// Preset is the decoded shape of a scheduling preset file:
//
//	optimize = true
//
//	[schedule]
//	order = ["i", "j", "k"]
//
//	[[tile]]
//	axis = "i"
//	size = 32
//
//	[[tile]]
//	axis = "j"
//	size = 64
type Preset struct {
	Optimize bool          `toml:"optimize"`
	Schedule scheduleBlock `toml:"schedule"`
	Tiles    []TileEntry   `toml:"tile"`
}

type scheduleBlock struct {
	Order []string `toml:"order"`
}

// TileEntry is one [[tile]] table: an axis name and its tile size.
type TileEntry struct {
	Axis string `toml:"axis"`
	Size int    `toml:"size"`
}

// Load parses a preset from path. A missing [schedule] or [[tile]]
// table is not an error — Optimize-only and order-only presets are
// both legitimate — but a [[tile]] entry missing its axis or carrying
// a non-positive size is rejected, since such an entry could never
// produce a meaningful TileSpec.
func Load(path string) (*Preset, error) {
	var p Preset
	_, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	for i, t := range p.Tiles {
		if strings.TrimSpace(t.Axis) == "" {
			return nil, fmt.Errorf("%s: [[tile]] entry %d is missing axis", path, i)
		}
		if t.Size <= 0 {
			return nil, fmt.Errorf("%s: [[tile]] entry %d (axis %q) must have a positive size", path, i, t.Axis)
		}
	}
	return &p, nil
}

// ScheduleOrder returns the preferred global loop order the preset's
// [schedule] table names, or nil if none was given. This is a
// PrimFunc-level preference (ir.PrimFunc.Schedule, consulted by
// internal/dsbuild when building the identity tree; see spec.md §4.2),
// not a Compile Option, so callers apply it before calling Compile
// rather than through LoadPreset's returned options:
//
//	f.Schedule = ir.Schedule(preset.ScheduleOrder())
func (p *Preset) ScheduleOrder() []string { return p.Schedule.Order }

// LoadPreset loads path and converts it directly into the []Option
// slice Compile accepts, ready to splice into a Compile call:
//
//	opts, err := config.LoadPreset("gemm.toml")
//	out, err := loopoly.Compile(loopoly.Single(f), opts...)
//
// The preset's [schedule] table is not represented here (see
// ScheduleOrder's doc comment) since it configures the PrimFunc, not
// the Compile call.
func LoadPreset(path string) ([]loopoly.Option, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	var opts []loopoly.Option
	if p.Optimize {
		opts = append(opts, loopoly.WithOptimize())
	}
	if len(p.Tiles) > 0 {
		specs := make([]loopoly.TileSpec, len(p.Tiles))
		for i, t := range p.Tiles {
			specs[i] = loopoly.TileSpec{Axis: t.Axis, Size: t.Size}
		}
		opts = append(opts, loopoly.WithTiles(specs...))
	}
	return opts, nil
}
