package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/safetyops/scnuke/internal/api"
	"github.com/safetyops/scnuke/internal/config"
	"github.com/safetyops/scnuke/internal/nuke"
	"github.com/safetyops/scnuke/internal/progress"
	"github.com/safetyops/scnuke/internal/resource"
	"github.com/safetyops/scnuke/internal/stats"
	"github.com/safetyops/scnuke/internal/ui"
)

// confirmPhrase must be typed verbatim before anything is deleted.
const confirmPhrase = "NUKE"

var errAborted = errors.New("aborted")

func runNuke(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  %s %s\n", ui.FailStyle.Render(ui.IconFail), issue)
		}
		return fmt.Errorf("configuration is not usable")
	}

	skip, err := resource.ParseSkipList(strings.Join(cfg.Skip, ","))
	if err != nil {
		return err
	}

	if quietFlag || !ui.IsInteractive() {
		ui.DisableColor()
	}

	printPlan(cfg, skip)

	if !yesFlag {
		if !ui.IsInteractive() {
			return fmt.Errorf("refusing to run without confirmation on a non-interactive terminal (use --yes)")
		}
		if err := confirm(); err != nil {
			return err
		}
	}

	var sink stats.Sink
	var bars *progress.Bars
	if !quietFlag && !verboseFlag && ui.IsInteractive() {
		bars = progress.NewBars(os.Stderr)
		sink = bars
	}

	var already func(resource.Kind, string) bool
	if resumeFromPath != "" {
		already, err = nuke.LoadProcessed(resumeFromPath)
		if err != nil {
			return err
		}
	}

	var processedLog *nuke.ProcessedLog
	if cfg.ProcessedLog != "" {
		processedLog, err = nuke.OpenProcessedLog(cfg.ProcessedLog)
		if err != nil {
			return err
		}
		defer func() { _ = processedLog.Close() }()
	}

	engine := nuke.New(nuke.Options{
		Client:            api.NewClient(cfg.BaseURL, cfg.Token),
		ListConcurrency:   cfg.ListConcurrency,
		DeleteConcurrency: cfg.DeleteConcurrency,
		Skip:              skip,
		Sink:              sink,
		AlreadyProcessed:  already,
		ProcessedLog:      processedLog,
		Verbose:           verboseFlag && !quietFlag,
		Stderr:            os.Stderr,
	})

	summaries, runErr := engine.Run(cmd.Context())
	if bars != nil {
		bars.Wait()
	}

	fmt.Print(renderSummary(summaries))

	if runErr != nil && !errors.Is(runErr, nuke.ErrItemsFailed) {
		return runErr
	}
	if runErr != nil {
		return fmt.Errorf("completed with failures")
	}
	return nil
}

// applyFlags overlays explicitly set flags onto the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("token") {
		cfg.Token = tokenFlag
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = baseURLFlag
	}
	if cmd.Flags().Changed("skip") {
		cfg.Skip = skipFlag
	}
	if cmd.Flags().Changed("delete-concurrency") {
		cfg.DeleteConcurrency = deleteConcurrency
	}
	if cmd.Flags().Changed("list-concurrency") {
		cfg.ListConcurrency = listConcurrency
	}
	if cmd.Flags().Changed("processed-log") {
		cfg.ProcessedLog = processedLogPath
	}
}

// printPlan shows what is about to be destroyed before asking for
// confirmation.
func printPlan(cfg *config.Config, skip map[resource.Kind]bool) {
	fmt.Fprintln(os.Stderr, ui.DangerStyle.Render("This will PERMANENTLY DELETE all data in the account."))
	fmt.Fprintf(os.Stderr, "  target: %s\n", cfg.BaseURL)
	for _, k := range resource.Order {
		if skip[k] {
			fmt.Fprintf(os.Stderr, "  %s %s (skipped)\n", ui.MutedStyle.Render(ui.IconSkip), ui.MutedStyle.Render(string(k)))
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", ui.WarnStyle.Render(ui.IconWarn), k)
	}
}

// confirm requires the operator to type the confirmation phrase. Any
// other input, or closing the prompt, aborts.
func confirm() error {
	var typed string
	input := huh.NewInput().
		Title(fmt.Sprintf("Type %s to proceed", confirmPhrase)).
		Value(&typed)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return errAborted
	}
	if typed != confirmPhrase {
		fmt.Fprintln(os.Stderr, "Nothing deleted.")
		return errAborted
	}
	return nil
}
