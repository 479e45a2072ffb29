// Command scnuke permanently deletes every resource in a SafetyCulture
// account. It exists for resetting load-test and demo accounts; pointing
// it at an account you care about is how you stop caring about it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath        string
	tokenFlag         string
	baseURLFlag       string
	skipFlag          []string
	yesFlag           bool
	deleteConcurrency int
	listConcurrency   int
	processedLogPath  string
	resumeFromPath    string
	verboseFlag       bool
	quietFlag         bool
)

var rootCmd = &cobra.Command{
	Use:   "scnuke",
	Short: "Delete every resource in a SafetyCulture account",
	Long: `scnuke enumerates and permanently deletes all actions, issues,
inspections, assets, credentials, contractor companies, OSHA cases,
templates, and sites in the account the API token belongs to.

There is no undo. The tool asks for typed confirmation unless --yes is
given.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runNuke,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default: ./.scnuke.yaml, then ~/.scnuke.yaml)")
	f.StringVar(&tokenFlag, "token", "", "API token (overrides SC_API_TOKEN and the config file)")
	f.StringVar(&baseURLFlag, "base-url", "", "API base URL")
	f.StringSliceVar(&skipFlag, "skip", nil, "resource kinds to leave untouched (comma-separated)")
	f.BoolVar(&yesFlag, "yes", false, "skip the confirmation prompt")
	f.IntVar(&deleteConcurrency, "delete-concurrency", 0, "max in-flight delete requests")
	f.IntVar(&listConcurrency, "list-concurrency", 0, "max in-flight listing requests")
	f.StringVar(&processedLogPath, "processed-log", "", "append successfully deleted ids to this JSONL file")
	f.StringVar(&resumeFromPath, "resume-from", "", "skip ids recorded in this processed log from an earlier run")
	f.BoolVarP(&verboseFlag, "verbose", "v", false, "per-kind progress lines instead of bars")
	f.BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAborted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
