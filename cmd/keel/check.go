package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"keel/internal/diag"
	"keel/internal/diagfmt"
	"keel/internal/driver"
	"keel/internal/pipeline"
	"keel/internal/ui"
	"keel/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [unit.yaml]",
	Short: "Infer types and check traits for a unit",
	Long: `Check loads a declaration unit, registers its traits and impls, checks
coherence and infers every function body. Without an argument the unit named
by [unit].main in keel.toml is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("mode", "collect-all", "error policy (collect-all|fail-fast)")
	checkCmd.Flags().Int("jobs", 0, "max parallel inference workers (0=auto)")
	checkCmd.Flags().Int("max-depth", 1000, "recursion ceiling for unification and projections")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif|short)")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	checkCmd.Flags().Bool("cache", true, "reuse results of unchanged bodies from the disk cache")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("preview", false, "preview fix edits (implies --suggest)")
	checkCmd.Flags().Bool("explain", false, "append the long description of each code")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("dump-types", false, "print the inferred type of every body")
	checkCmd.Flags().Bool("dump-exprs", false, "with --dump-types, also print every expression type")
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(args, cmd.Flags(), cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json", "sarif", "short":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if settings.cache {
		cache, err := driver.OpenDiskCache("keel")
		if err != nil {
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: disk cache disabled: %v\n", err)
			}
		} else {
			settings.opts.Cache = cache
		}
	}

	var res *driver.Result
	if format == "pretty" && !quiet && shouldUseTUI(mode) {
		res, err = runCheckWithUI(cmd.Context(), settings, cmd.ErrOrStderr())
	} else {
		res, err = driver.CheckFile(cmd.Context(), settings.unitPath, settings.opts)
	}
	if err != nil {
		dumpTrace(cmd)
		return fmt.Errorf("check failed: %w", err)
	}

	if err := writeDiagnostics(cmd, res, format, args); err != nil {
		return err
	}
	dumpTypes, err := cmd.Flags().GetBool("dump-types")
	if err != nil {
		return err
	}
	if dumpTypes {
		dumpExprs, err := cmd.Flags().GetBool("dump-exprs")
		if err != nil {
			return err
		}
		writeTypes(cmd.OutOrStdout(), res, dumpExprs)
	}
	if settings.opts.EnableTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
		if res.Timing != nil {
			fmt.Fprint(cmd.ErrOrStderr(), res.Timing.String())
		}
		fmt.Fprintln(cmd.ErrOrStderr(), res.Stats.String())
	}
	if res.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func runCheckWithUI(ctx context.Context, settings checkSettings, out io.Writer) (*driver.Result, error) {
	events := make(chan pipeline.Event, 256)
	type outcome struct {
		res *driver.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		opts := settings.opts
		opts.Progress = pipeline.ChannelSink{Ch: events}
		res, err := driver.CheckFile(ctx, settings.unitPath, opts)
		close(events)
		done <- outcome{res, err}
	}()
	uiErr := ui.Run(ctx, "check "+settings.unitPath, events, out)
	if uiErr != nil {
		// Keep draining so the driver never blocks on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	o := <-done
	if o.err == nil && uiErr != nil {
		return o.res, uiErr
	}
	return o.res, o.err
}

func writeDiagnostics(cmd *cobra.Command, res *driver.Result, format string, args []string) error {
	out := cmd.OutOrStdout()
	withNotes, _ := cmd.Flags().GetBool("with-notes")
	suggest, _ := cmd.Flags().GetBool("suggest")
	preview, _ := cmd.Flags().GetBool("preview")
	explain, _ := cmd.Flags().GetBool("explain")
	fullPath, _ := cmd.Flags().GetBool("fullpath")

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	switch format {
	case "pretty":
		diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:       useColor(),
			Context:     1,
			PathMode:    pathMode,
			ShowNotes:   withNotes,
			ShowFixes:   suggest || preview,
			ShowPreview: preview,
			ShowExplain: explain,
		})
	case "short":
		if text := diag.FormatGolden(res.Bag.Items(), res.FileSet, withNotes); text != "" {
			fmt.Fprintln(out, text)
		}
	case "json":
		if err := diagfmt.JSON(out, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     suggest || preview,
			IncludePreviews:  preview,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		if err := diagfmt.Sarif(out, res.Bag, res.FileSet, diagfmt.SarifRunMeta{
			ToolName:       "keel",
			ToolVersion:    version.Version,
			InvocationArgs: append([]string{"check"}, args...),
			PathMode:       pathMode,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	return nil
}

func useColor() bool {
	return !color.NoColor
}
