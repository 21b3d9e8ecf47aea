package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/ile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check [./folder|file.ile]",
	Short:        "Type check ile modules and print the types of their declarations",
	RunE:         runCheck,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var (
	checkFlags *projectFlags
	checkQuiet *bool
)

func init() {
	checkFlags = addProjectFlags(CheckCmd)
	checkQuiet = CheckCmd.Flags().BoolP("quiet", "q", false, "only print errors")
}

var okColor = color.New(color.FgGreen, color.Bold)

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, module, err := checkFlags.load(cmd, argOrEmpty(args))
	if err != nil {
		return err
	}
	w := ile.Open(cfg, ile.Options{})
	modules, err := targetModules(w, module)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, module := range modules {
		pkg, err := w.Check(cmd.Context(), module)
		if err != nil {
			return fmt.Errorf("could not check %s (this is a bug or an import failure, not a type error): %w", module, err)
		}
		if pkg.Errors().HasError() {
			failed++
			printErrors(out, pkg)
			continue
		}
		if !*checkQuiet {
			fmt.Fprintf(out, "%s %s\n", okColor.Sprint("ok"), module)
			fmt.Fprint(out, indent(pkg.DisplayTypes(), "  "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d modules have errors", failed, len(modules))
	}
	return nil
}

func printErrors(out io.Writer, pkg *ile.Package) {
	for _, ileError := range pkg.Errors().Errors() {
		fmt.Fprintln(out, ilerr.FormatWithCodeAndSource(ileError, pkg))
	}
}

func indent(s, prefix string) string {
	if s == "" {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	sb := strings.Builder{}
	for _, line := range lines {
		if line != "" {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String()
}
