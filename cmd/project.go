package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/ile"
	"github.com/cottand/iletype/internal/config"
	"github.com/cottand/iletype/internal/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var logger = log.DefaultLogger.With("section", "cmd")

// projectFlags are the flags shared by the commands working on a project.
// Set flags override ile.toml.
type projectFlags struct {
	logLevel  *string
	sections  *[]string
	prelude   *[]string
	artifacts *string
	noColor   *bool
}

func addProjectFlags(cmd *cobra.Command) *projectFlags {
	return &projectFlags{
		logLevel:  cmd.Flags().StringP("log-level", "l", "", "log level (debug, info, warn, error)"),
		sections:  cmd.Flags().StringSlice("log-section", nil, "only log these sections, like frontend.parse"),
		prelude:   cmd.Flags().StringSlice("prelude", nil, "modules imported by every module"),
		artifacts: cmd.Flags().String("artifacts", "", "directory compiled modules are stored in"),
		noColor:   cmd.Flags().Bool("no-color", false, "disable colored output"),
	}
}

// load finds the project target belongs to, and returns its configuration
// together with the module target names, if target is a source file
func (f *projectFlags) load(cmd *cobra.Command, target string) (config.Config, string, error) {
	if target == "" {
		target = "."
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("could not get absolute path of target: %w", err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("could not stat target: %w", err)
	}
	dir := abs
	if !stat.IsDir() {
		dir = filepath.Dir(abs)
	}
	cfg, err := config.Discover(dir)
	if err != nil {
		return config.Config{}, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = *f.logLevel
	}
	if flags.Changed("log-section") {
		cfg.Log.Sections = *f.sections
	}
	if flags.Changed("prelude") {
		cfg.Build.Prelude = *f.prelude
	}
	if flags.Changed("artifacts") {
		cfg.Build.Artifacts = *f.artifacts
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log.SetLevel(level)
	if len(cfg.Log.Sections) > 0 {
		log.EnableSections(cfg.Log.Sections...)
	}
	color.NoColor = *f.noColor || !isTerminal(os.Stdout)
	logger.Debug("loaded project", "root", cfg.Root, "sources", cfg.SourceDir())

	if stat.IsDir() {
		return cfg, "", nil
	}
	module, err := moduleOf(cfg, abs)
	return cfg, module, err
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// moduleOf names the module of the source file at path
func moduleOf(cfg config.Config, path string) (string, error) {
	if filepath.Ext(path) != resolve.SourceExt {
		return "", fmt.Errorf("%s is not an ile source file", path)
	}
	rel, err := filepath.Rel(cfg.SourceDir(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the source directory %s", path, cfg.SourceDir())
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, resolve.SourceExt))
	return strings.ReplaceAll(rel, "/", "."), nil
}

// targetModules returns the modules a command should work on: the module
// of the target file, else the project's main module, else all of them
func targetModules(w *ile.Workspace, module string) ([]string, error) {
	switch {
	case module != "":
		return []string{module}, nil
	case w.Config.Project.Main != "":
		return []string{w.Config.Project.Main}, nil
	default:
		return w.Modules()
	}
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
