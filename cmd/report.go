package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/storage"
	"github.com/personalweb03/services/internal/timecalc"
)

const (
	formatMarkdown = "md"
	formatCSV      = "csv"
	formatJSON     = "json"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the last exported hours per project",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", formatMarkdown, "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	report, err := storage.LoadHoursCSV(cfg.HoursCSVPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := writeReport(os.Stdout, report, reportFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return nil
}

func hoursToSeconds(h float64) int64 {
	return int64(math.Round(h * 3600))
}

// writeReport prints report in the given format.
func writeReport(w io.Writer, report model.HoursReport, format string) error {
	var total float64
	for _, p := range report.Projects {
		total += p.HoursWorked
	}
	total = math.Round(total*100) / 100

	switch format {
	case formatCSV:
		cw := csv.NewWriter(w)
		cw.Write([]string{"project", "hours"})
		for _, p := range report.Projects {
			cw.Write([]string{p.ProjectName, strconv.FormatFloat(p.HoursWorked, 'f', 2, 64)})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
	case formatJSON:
		out, err := json.MarshalIndent(struct {
			model.HoursReport
			TotalHours float64 `json:"total_hours"`
		}{report, total}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Fprintln(w, string(out))
	case formatMarkdown:
		fmt.Fprintf(w, "Hours collected %s\n", report.CollectedAt)
		fmt.Fprintln(w, "--------------------------------")
		for _, p := range report.Projects {
			fmt.Fprintf(w, "%-20s%s\n", p.ProjectName, timecalc.FormatDuration(hoursToSeconds(p.HoursWorked)))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatDuration(hoursToSeconds(total)))
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
	return nil
}
