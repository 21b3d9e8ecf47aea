package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/frontend/types"
	"github.com/cottand/iletype/ile"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect module.name|module...",
	Short: "Show the resolved type of declarations",
	Long: "Show the resolved type of declarations, given by their qualified name.\n" +
		"Given a module name, every declaration of the module is shown.",
	RunE:         runInspect,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	inspectFlags *projectFlags
	inspectYAML   *bool
	inspectUnroll *bool
	inspectDir    *string
)

func init() {
	inspectFlags = addProjectFlags(InspectCmd)
	inspectYAML = InspectCmd.Flags().Bool("yaml", false, "print the full structure of each type as YAML")
	inspectUnroll = InspectCmd.Flags().Bool("unroll", false, "also list the members of data types, with recursive references expanded once")
	inspectDir = InspectCmd.Flags().StringP("dir", "C", ".", "project directory")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, _, err := inspectFlags.load(cmd, *inspectDir)
	if err != nil {
		return err
	}
	w := ile.Open(cfg, ile.Options{})

	var decls []resolve.Declaration
	for _, name := range args {
		decl, err := w.Inspect(cmd.Context(), name)
		if err == nil {
			decls = append(decls, decl)
			continue
		}
		if !resolve.IsNotFound(err) {
			return err
		}
		// not a declaration, maybe a whole module
		unit, moduleErr := w.Resolver.Module(cmd.Context(), name)
		if moduleErr != nil {
			return err
		}
		decls = append(decls, unit.Declarations...)
	}

	out := cmd.OutOrStdout()
	if *inspectYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(decls)
	}
	if err := printDeclarations(out, decls); err != nil {
		return err
	}
	if !*inspectUnroll {
		return nil
	}
	for _, decl := range decls {
		if decl.Kind != resolve.KindType {
			continue
		}
		if err := printMembers(out, decl); err != nil {
			return err
		}
	}
	return nil
}

// printDeclarations lists decls as a table of names and types, with the
// types aligned on display width so that non-ASCII names line up
func printDeclarations(out io.Writer, decls []resolve.Declaration) error {
	width := 0
	for _, decl := range decls {
		width = max(width, runewidth.StringWidth(declLabel(decl)))
	}
	for _, decl := range decls {
		label := declLabel(decl)
		shown, err := showInfo(decl.Type)
		if err != nil {
			return fmt.Errorf("could not display %s: %w", decl.Name, err)
		}
		fmt.Fprintf(out, "%s%s :: %s\n", label, strings.Repeat(" ", width-runewidth.StringWidth(label)), shown)
	}
	return nil
}

// printMembers lists the members of a data type, unrolled one level so that
// references to the type itself show its type arguments
func printMembers(out io.Writer, decl resolve.Declaration) error {
	arena := types.NewArena()
	h, err := reflect.Materialize(arena, decl.Type)
	if err != nil {
		return fmt.Errorf("could not display %s: %w", decl.Name, err)
	}
	i := reflect.Introspect(arena, h)
	for _, name := range i.Members() {
		member, _ := i.Member(name)
		shown, err := showInfo(member)
		if err != nil {
			return fmt.Errorf("could not display %s: %w", name, err)
		}
		fmt.Fprintf(out, "  %s = %s\n", name.Local(), shown)
	}
	return nil
}

func declLabel(decl resolve.Declaration) string {
	if decl.Kind == resolve.KindType {
		return "data " + decl.Name.String()
	}
	return decl.Name.String()
}

// showInfo prints info the way the type checker does
func showInfo(info reflect.TypeInfo) (string, error) {
	arena := types.NewArena()
	h, err := reflect.Materialize(arena, info)
	if err != nil {
		return "", err
	}
	if info.Kind == types.KindAlgebraic.String() {
		return arena.ShowDefinition(h), nil
	}
	return arena.Show(h), nil
}
