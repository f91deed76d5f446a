package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/traits"
	"keel/internal/types"
	"keel/internal/unitfile"
)

var registryCmd = &cobra.Command{
	Use:   "registry [flags] <unit.yaml>",
	Short: "Print the trait registry built from a unit",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistry,
}

func init() {
	registryCmd.Flags().Bool("raw", false, "dump the registry structures verbatim")
}

func runRegistry(cmd *cobra.Command, args []string) error {
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return fmt.Errorf("failed to get raw flag: %w", err)
	}
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	reporter := diag.BagReporter{Bag: bag}
	unit, _, err := unitfile.Load(fs, args[0], reporter)
	if err != nil {
		return err
	}
	b := traits.NewBuilder(unit, reporter, traits.Options{})
	b.Register()
	reg := b.Freeze()

	out := cmd.OutOrStdout()
	if raw {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(out, reg.Traits(), reg.Impls(), reg.Extensions())
	} else {
		writeRegistry(out, reg)
	}
	if bag.Len() > 0 {
		bag.Sort()
		fmt.Fprintln(cmd.ErrOrStderr(), diag.FormatGolden(bag.Items(), fs, false))
	}
	return nil
}

func writeRegistry(w io.Writer, reg *traits.Registry) {
	heading := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s\n", heading.Sprint("registry"), reg.HashString()[:16])

	if names := reg.TypeNames(); len(names) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading.Sprint("types"))
		for _, name := range names {
			info, _ := reg.Type(name)
			fmt.Fprintf(w, "  %s/%d  (%s)\n", info.Name, info.Arity, info.Module)
		}
	}

	fmt.Fprintf(w, "\n%s\n", heading.Sprint("traits"))
	for _, def := range reg.Traits() {
		line := "  " + def.Name
		if len(def.Supers) > 0 {
			supers := make([]string, len(def.Supers))
			for i, s := range def.Supers {
				supers[i] = s.Name
			}
			line += ": " + strings.Join(supers, " + ")
		}
		if def.Cyclic {
			line += "  (cyclic)"
		}
		fmt.Fprintln(w, line)
		for _, a := range def.Assoc {
			fmt.Fprintf(w, "    type %s\n", a.Name)
		}
		self := map[types.VarID]string{def.Self: "Self"}
		for _, m := range def.Methods {
			mark := ""
			if m.HasDefault {
				mark = "  (default)"
			}
			fmt.Fprintf(w, "    fn %s: %s%s\n", m.Name, render(m.Fn(), self, m.Generics), mark)
		}
	}

	fmt.Fprintf(w, "\n%s\n", heading.Sprint("impls"))
	for _, impl := range reg.Impls() {
		names := genericNames(impl.Generics)
		target := render(impl.Target, names, nil)
		if impl.Inherent() {
			fmt.Fprintf(w, "  impl %s  [%s]\n", target, impl.Rank)
		} else {
			fmt.Fprintf(w, "  impl %s for %s  [%s]\n", impl.TraitName, target, impl.Rank)
		}
		for _, a := range impl.Assoc {
			fmt.Fprintf(w, "    type %s = %s\n", a.Name, render(a.Type, names, nil))
		}
		for _, m := range impl.Methods {
			fmt.Fprintf(w, "    fn %s: %s\n", m.Name, render(m.Fn(), names, m.Generics))
		}
	}

	if exts := reg.Extensions(); len(exts) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading.Sprint("extensions"))
		for _, ext := range exts {
			names := genericNames(ext.Generics)
			fmt.Fprintf(w, "  extend %s\n", render(ext.Target, names, nil))
			for _, m := range ext.Methods {
				fmt.Fprintf(w, "    fn %s: %s\n", m.Name, render(m.Fn(), names, m.Generics))
			}
		}
	}
}

func genericNames(generics []traits.Generic) map[types.VarID]string {
	names := make(map[types.VarID]string, len(generics))
	for _, g := range generics {
		names[g.Var] = g.Name
	}
	return names
}

// render shows registry variables by the generic name they stand for.
func render(t types.Type, names map[types.VarID]string, extra []traits.Generic) string {
	return types.Rewrite(t, func(n types.Type) (types.Type, bool) {
		if n.Kind != types.KindVar {
			return n, false
		}
		if name, ok := names[n.Var]; ok {
			return types.MakeParam(name), true
		}
		for _, g := range extra {
			if g.Var == n.Var {
				return types.MakeParam(g.Name), true
			}
		}
		return n, false
	}).String()
}
