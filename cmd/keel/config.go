package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"keel/internal/driver"
	"keel/internal/project"
)

// checkSettings is the merged configuration of one check run: manifest
// values first, then any flag the user set explicitly.
type checkSettings struct {
	unitPath string
	manifest *project.Manifest
	opts     driver.Options
	cache    bool
}

// resolveSettings loads keel.toml above the unit (or the working
// directory when no unit is given) and applies the flags over it.
func resolveSettings(args []string, local, root *pflag.FlagSet) (checkSettings, error) {
	var s checkSettings
	start := "."
	if len(args) > 0 {
		s.unitPath = args[0]
		start = filepath.Dir(args[0])
	}
	manifest, _, err := project.LoadManifest(start)
	if err != nil {
		return s, err
	}
	s.manifest = manifest

	cfg := project.DefaultConfig()
	if manifest != nil {
		cfg = manifest.Config
		if s.unitPath == "" {
			s.unitPath = manifest.MainUnit()
		}
		s.opts.Local = cfg.Unit.Local
	}
	if s.unitPath == "" {
		return s, fmt.Errorf("no unit given and no [unit].main in %s", project.ManifestName)
	}
	if _, err := os.Stat(s.unitPath); err != nil {
		return s, fmt.Errorf("failed to stat unit: %w", err)
	}

	modeStr := cfg.Check.Mode
	if local.Changed("mode") {
		if modeStr, err = local.GetString("mode"); err != nil {
			return s, err
		}
	}
	if s.opts.Mode, err = driver.ParseMode(modeStr); err != nil {
		return s, err
	}

	s.opts.Jobs = cfg.Check.Jobs
	if local.Changed("jobs") {
		if s.opts.Jobs, err = local.GetInt("jobs"); err != nil {
			return s, err
		}
	}
	s.opts.MaxDepth = cfg.Check.MaxDepth
	if local.Changed("max-depth") {
		if s.opts.MaxDepth, err = local.GetInt("max-depth"); err != nil {
			return s, err
		}
	}
	s.opts.MaxDiagnostics = cfg.Check.MaxDiagnostics
	if root.Changed("max-diagnostics") {
		if s.opts.MaxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
			return s, err
		}
	}
	if s.opts.Jobs < 0 || s.opts.MaxDepth < 0 || s.opts.MaxDiagnostics < 0 {
		return s, fmt.Errorf("--jobs, --max-depth and --max-diagnostics must not be negative")
	}

	s.cache = cfg.Check.Cache
	if local.Changed("cache") {
		if s.cache, err = local.GetBool("cache"); err != nil {
			return s, err
		}
	}
	if s.opts.EnableTimings, err = root.GetBool("timings"); err != nil {
		return s, err
	}
	return s, nil
}
