package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	runLeftOff bool
	runToggl   bool
	runAnyway  bool
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "pws",
	Short: "Personal web services – weekly notes summary and hours export",
	Long: `pws runs two weekly chores: it summarises the last 7 days of a notes
document stored in OneDrive (or Google Drive) with a language model, and it
exports the hours tracked per project in Toggl to a CSV file.

Without a service flag both services run, but only inside the daily
10 minute window that starts at TIME_WINDOW_START.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServices,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&runLeftOff, "run-left-off", false, "Run only the notes summary, ignoring the time window")
	rootCmd.Flags().BoolVar(&runToggl, "run-toggl", false, "Run only the hours export, ignoring the time window")
	rootCmd.Flags().BoolVar(&runAnyway, "run-anyway", false, "Bypass the time window")
	rootCmd.MarkFlagsMutuallyExclusive("run-left-off", "run-toggl")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Read settings from this file instead of ./.env")

	rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + "\nEnvironment:\n{{envUsage}}\n")
	cobra.AddTemplateFunc("envUsage", envUsage)

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
}
