package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/personalweb03/services/internal/history"
)

var (
	historyService string
	historyLimit   int
	historyHours   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent service runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyService, "service", "", "Only show runs of this service (left-off or toggl)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of runs to show")
	historyCmd.Flags().BoolVar(&historyHours, "hours", false, "Show the project hours collected by each run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, err := history.Open(a.cfg.HistoryDBPath(), a.log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.exit(1)
	}
	a.store = store

	runs, err := store.RecentRuns(ctx, historyService, historyLimit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		a.exit(0)
	}

	for _, r := range runs {
		printRun(os.Stdout, r)
		if !historyHours {
			continue
		}
		rows, err := store.ProjectHours(ctx, r.ID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			a.exit(1)
		}
		for _, p := range rows {
			fmt.Printf("    %-20s%.2f h\n", p.ProjectName, p.HoursWorked)
		}
	}
	a.exit(0)
	return nil
}

func printRun(w io.Writer, r history.Run) {
	status := "ok"
	if r.ExitCode != 0 {
		status = fmt.Sprintf("failed (%d)", r.ExitCode)
	}
	fmt.Fprintf(w, "%s  %-9s %-12s %s\n",
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		r.Service, status, formatElapsed(int64(r.Duration().Seconds())))
	if r.Error != "" {
		fmt.Fprintf(w, "    %s\n", r.Error)
	}
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
