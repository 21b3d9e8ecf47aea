// Package config reads ile.toml, the configuration of an ile project
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const FileName = "ile.toml"

// Config is the configuration of a project. Paths are relative to Root.
type Config struct {
	// Root is the directory ile.toml was found in
	Root    string  `toml:"-"`
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`
	Log     Log     `toml:"log"`
}

type Project struct {
	Name string `toml:"name"`
	// Main is the module checked when no module is given on the command line
	Main string `toml:"main"`
}

type Build struct {
	// Sources is the directory .ile files are read from
	Sources string `toml:"sources"`
	// Artifacts is the directory compiled modules are written to, and
	// looked up in before anything else
	Artifacts string `toml:"artifacts"`
	// Archives are zip files of compiled modules, looked up after Artifacts
	Archives []string `toml:"archives"`
	// Prelude lists modules implicitly imported by every module
	Prelude []string `toml:"prelude"`
}

type Log struct {
	Level    string   `toml:"level"`
	Sections []string `toml:"sections"`
}

// Default is the configuration of a project without ile.toml
func Default(root string) Config {
	return Config{
		Root: root,
		Build: Build{
			Sources:   ".",
			Artifacts: filepath.Join(".ile", "artifacts"),
		},
		Log: Log{Level: "error"},
	}
}

// Find looks for ile.toml in startDir and its parents
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load decodes the ile.toml at path. Settings it leaves out keep their
// Default value.
func Load(path string) (Config, error) {
	cfg := Default(filepath.Dir(path))
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Config{}, fmt.Errorf("%s: unknown settings %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("build", "sources") && strings.TrimSpace(cfg.Build.Sources) == "" {
		return Config{}, fmt.Errorf("%s: [build].sources must not be empty", path)
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return Config{}, fmt.Errorf("%s: [log].level: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the ile.toml governing startDir, or returns the Default
// configuration rooted at startDir if there is none
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return Config{}, err
		}
		return Default(root), nil
	}
	return Load(path)
}

func (c Config) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

func (c Config) SourceDir() string   { return c.abs(c.Build.Sources) }
func (c Config) ArtifactDir() string { return c.abs(c.Build.Artifacts) }

func (c Config) ArchivePaths() []string {
	paths := make([]string, len(c.Build.Archives))
	for i, archive := range c.Build.Archives {
		paths[i] = c.abs(archive)
	}
	return paths
}

// SlogLevel parses Level, like "debug" or "warn+2"
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelError, nil
	}
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}
