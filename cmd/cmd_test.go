package cmd

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/personalweb03/services/internal/history"
	"github.com/personalweb03/services/internal/model"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{30, "30s"},
		{59, "59s"},
		{60, "1m 0s"},
		{90, "1m 30s"},
		{3600, "1h 0m 0s"},
		{3661, "1h 1m 1s"},
		{7322, "2h 2m 2s"},
	}
	for _, tt := range tests {
		got := formatElapsed(tt.seconds)
		if got != tt.want {
			t.Errorf("formatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

var sample = model.HoursReport{
	CollectedAt: "2026-03-01 23:04:00",
	Projects: []model.ProjectHours{
		{ProjectName: "B", HoursWorked: 2},
		{ProjectName: "A", HoursWorked: 1.5},
	},
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{formatMarkdown, []string{"Hours collected 2026-03-01 23:04:00", "B                   2h 0m", "A                   1h 30m", "Total               3h 30m"}},
		{formatCSV, []string{"project,hours\nB,2.00\nA,1.50\n"}},
		{formatJSON, []string{`"datetime_collected": "2026-03-01 23:04:00"`, `"project_name": "A"`, `"total_hours": 3.5`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeReport(&buf, sample, tt.format); err != nil {
				t.Fatalf("writeReport: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q does not contain %q", buf.String(), w)
				}
			}
		})
	}
}

func TestWriteReportCSVQuotesNames(t *testing.T) {
	report := model.HoursReport{Projects: []model.ProjectHours{
		{ProjectName: "Acme, Inc", HoursWorked: 1.25},
		{ProjectName: `The "big" one`, HoursWorked: 0.5},
	}}
	var buf bytes.Buffer
	if err := writeReport(&buf, report, formatCSV); err != nil {
		t.Fatalf("writeReport: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	want := [][]string{
		{"project", "hours"},
		{"Acme, Inc", "1.25"},
		{`The "big" one`, "0.50"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %q, want %q", rows, want)
	}
}

func TestWriteReportUnknownFormat(t *testing.T) {
	if err := writeReport(&bytes.Buffer{}, sample, "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestPrintRun(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printRun(&buf, history.Run{
		ID:         "r1",
		Service:    "toggl",
		StartedAt:  start,
		FinishedAt: start.Add(95 * time.Second),
		ExitCode:   1,
		Error:      "toggl list workspaces: HTTP 403: forbidden",
	})
	out := buf.String()
	for _, w := range []string{"toggl", "failed (1)", "1m 35s", "HTTP 403"} {
		if !strings.Contains(out, w) {
			t.Errorf("output %q does not contain %q", out, w)
		}
	}
}
