// Package project reads keel.toml and provides the digests used as cache
// keys.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a decoded keel.toml together with where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	meta   toml.MetaData
}

// Config mirrors keel.toml:
//
//	[package]
//	name = "geometry"
//
//	[check]
//	mode = "collect-all"   # or "fail-fast"
//	max_depth = 1000
//	jobs = 0               # 0 uses GOMAXPROCS
//	max_diagnostics = 0    # 0 is unlimited
//	cache = true
//
//	[unit]
//	main = "shapes.yaml"
//	local = ["geo"]
type Config struct {
	Package PackageConfig `toml:"package"`
	Check   CheckConfig   `toml:"check"`
	Unit    UnitConfig    `toml:"unit"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type CheckConfig struct {
	Mode           string `toml:"mode"`
	MaxDepth       int    `toml:"max_depth"`
	Jobs           int    `toml:"jobs"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Cache          bool   `toml:"cache"`
}

type UnitConfig struct {
	Main  string   `toml:"main"`
	Local []string `toml:"local"`
}

// DefaultConfig is used for keys a manifest leaves out.
func DefaultConfig() Config {
	return Config{Check: CheckConfig{Mode: "collect-all", MaxDepth: 1000, Cache: true}}
}

// LoadManifest finds and decodes keel.toml above startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := ReadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// ReadManifest decodes the manifest at path over DefaultConfig.
func ReadManifest(path string) (*Manifest, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	switch cfg.Check.Mode {
	case "collect-all", "fail-fast":
	default:
		return nil, fmt.Errorf("%s: [check].mode must be \"collect-all\" or \"fail-fast\", got %q", path, cfg.Check.Mode)
	}
	if cfg.Check.MaxDepth < 0 || cfg.Check.Jobs < 0 || cfg.Check.MaxDiagnostics < 0 {
		return nil, fmt.Errorf("%s: [check] limits must not be negative", path)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg, meta: meta}, nil
}

// IsDefined reports whether the manifest set key explicitly, e.g.
// IsDefined("check", "jobs").
func (m *Manifest) IsDefined(key ...string) bool {
	return m != nil && m.meta.IsDefined(key...)
}

// MainUnit resolves [unit].main against the project root; "" if unset.
func (m *Manifest) MainUnit() string {
	if m == nil || strings.TrimSpace(m.Config.Unit.Main) == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Unit.Main))
}
