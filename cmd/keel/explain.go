package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keel/internal/diag"
)

var explainCmd = &cobra.Command{
	Use:   "explain [code]",
	Short: "Describe a diagnostic code, or list them all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		if len(args) == 0 {
			for _, c := range diag.Codes() {
				fmt.Fprintf(out, "%s  %-8s %s\n", bold.Sprint(c.ID()), c.Family(), c.Title())
			}
			return nil
		}
		c, ok := diag.ParseCode(args[0])
		if !ok {
			return fmt.Errorf("unknown diagnostic code %q", args[0])
		}
		fmt.Fprintf(out, "%s: %s\n\n%s\n", bold.Sprint(c.ID()), c.Title(), c.Explain())
		return nil
	},
}
