package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"keel/internal/driver"
)

const unitText = `modules:
  - name: main
    decls:
      - trait: Show
        methods:
          - fn: show
            params: [self]
            returns: str
      - impl: Show
        for: int
        methods:
          - fn: show
            params: [self]
            returns: str
            body: "n"
      - fn: take
        params: ["n: int"]
        returns: int
      - fn: sum
        returns: int
        body:
          - {op: "+", args: [1, 2]}
      - fn: wrong
        body:
          - {call: take, args: ["one"]}
          - ~
`

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func flagSets(t *testing.T, local ...string) (*pflag.FlagSet, *pflag.FlagSet) {
	t.Helper()
	lf := pflag.NewFlagSet("check", pflag.ContinueOnError)
	lf.String("mode", "collect-all", "")
	lf.Int("jobs", 0, "")
	lf.Int("max-depth", 1000, "")
	lf.Bool("cache", true, "")
	rf := pflag.NewFlagSet("keel", pflag.ContinueOnError)
	rf.Int("max-diagnostics", 0, "")
	rf.Bool("timings", false, "")
	if err := lf.Parse(local); err != nil {
		t.Fatal(err)
	}
	return lf, rf
}

func TestResolveSettingsFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "unit.yaml", unitText)
	writeFile(t, dir, "keel.toml", `
[package]
name = "demo"

[check]
mode = "fail-fast"
jobs = 3
cache = false

[unit]
main = "unit.yaml"
local = ["main"]
`)
	t.Chdir(dir)

	local, root := flagSets(t)
	s, err := resolveSettings(nil, local, root)
	if err != nil {
		t.Fatal(err)
	}
	if s.unitPath != filepath.Join(dir, "unit.yaml") {
		t.Fatalf("unit path %q", s.unitPath)
	}
	if s.opts.Mode != driver.FailFast || s.opts.Jobs != 3 || s.opts.MaxDepth != 1000 || s.cache {
		t.Fatalf("unexpected settings %+v cache=%v", s.opts, s.cache)
	}
	if len(s.opts.Local) != 1 || s.opts.Local[0] != "main" {
		t.Fatalf("local = %v", s.opts.Local)
	}

	local, root = flagSets(t, "--mode=collect-all", "--jobs=1", "--cache=true")
	s, err = resolveSettings(nil, local, root)
	if err != nil {
		t.Fatal(err)
	}
	if s.opts.Mode != driver.CollectAll || s.opts.Jobs != 1 || !s.cache {
		t.Fatalf("flags did not override the manifest: %+v cache=%v", s.opts, s.cache)
	}
}

func TestResolveSettingsErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	local, root := flagSets(t)
	if _, err := resolveSettings(nil, local, root); err == nil {
		t.Fatalf("expected an error without unit or manifest")
	}
	path := writeFile(t, dir, "unit.yaml", unitText)
	local, root = flagSets(t, "--mode=sometimes")
	if _, err := resolveSettings([]string{path}, local, root); err == nil {
		t.Fatalf("expected an invalid mode error")
	}
	local, root = flagSets(t, "--jobs=-2")
	if _, err := resolveSettings([]string{path}, local, root); err == nil {
		t.Fatalf("expected a negative jobs error")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := t.TempDir()
	path := writeFile(t, dir, "unit.yaml", unitText)
	t.Chdir(dir)

	out, err := execute(t, "check", "--color=off", "--ui=off", "--format=short", "--dump-types", "--dump-exprs", path)
	var exit exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit status 1, got %v\n%s", err, out)
	}
	for _, want := range []string{
		"error E0308 ",
		"sum: fn() -> int\n",
		"binary: int",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRegistryCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "unit.yaml", unitText)
	out, err := execute(t, "registry", "--color=off", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"traits\n  Show\n", "fn show: fn(Self) -> str", "impl Show for int  [concrete]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "--color=off", "E0602")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "E0602: ") || !strings.Contains(out, "Trait.method(receiver)") {
		t.Fatalf("unexpected explain output:\n%s", out)
	}
	if _, err := execute(t, "explain", "--color=off", "E9999"); err == nil {
		t.Fatalf("expected an unknown code error")
	}
}
