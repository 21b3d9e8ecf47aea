package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/ile"
	"github.com/spf13/cobra"
)

var BuildCmd = &cobra.Command{
	Use:          "build [./folder|file.ile]",
	Short:        "Compile ile modules into artifacts, reusing the ones already built",
	RunE:         runBuild,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var (
	buildFlags   *projectFlags
	buildArchive *string
	buildFresh   *bool
)

func init() {
	buildFlags = addProjectFlags(BuildCmd)
	buildArchive = BuildCmd.Flags().StringP("archive", "o", "", "also pack every compiled module into this zip archive")
	buildFresh = BuildCmd.Flags().Bool("fresh", false, "ignore artifacts from previous builds")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, module, err := buildFlags.load(cmd, argOrEmpty(args))
	if err != nil {
		return err
	}
	w := ile.Open(cfg, ile.Options{Fresh: *buildFresh})
	modules, err := targetModules(w, module)
	if err != nil {
		return err
	}

	start := time.Now()
	units, err := w.Build(cmd.Context(), modules...)
	if err != nil {
		// type errors are printed against the source they are in
		var errs *ilerr.Errors
		if errors.As(err, &errs) {
			return fmt.Errorf("errors found during compilation:\n%s", buildErrors(cmd, w, err, errs))
		}
		return fmt.Errorf("could not build: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, unit := range units {
		fmt.Fprintf(out, "%s %s (%s)\n", okColor.Sprint("built"), unit.Module, unit.Strategy)
	}
	logger.Info("build finished", "modules", len(w.Resolver.Loaded()), "took", time.Since(start))

	if *buildArchive == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(*buildArchive), os.ModePerm); err != nil {
		return fmt.Errorf("could not create archive directory: %w", err)
	}
	f, err := os.Create(*buildArchive)
	if err != nil {
		return fmt.Errorf("could not create archive: %w", err)
	}
	if err := w.WriteArchive(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not write archive: %w", err)
	}
	return f.Close()
}

// buildErrors re-checks the module that failed to compile, so that its
// diagnostics can be shown with their source. That module is the innermost
// one err went through, as a failed import fails its importers too.
func buildErrors(cmd *cobra.Command, w *ile.Workspace, err error, errs *ilerr.Errors) string {
	var failed *resolve.ResolutionError
	for e := err; e != nil; e = errors.Unwrap(e) {
		if resolutionErr, ok := e.(*resolve.ResolutionError); ok {
			failed = resolutionErr
		}
	}
	if failed == nil {
		return errs.Error()
	}
	pkg, checkErr := w.Check(cmd.Context(), failed.Module)
	if checkErr != nil || !pkg.Errors().HasError() {
		return errs.Error()
	}
	sb := &strings.Builder{}
	printErrors(sb, pkg)
	return sb.String()
}
