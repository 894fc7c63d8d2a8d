package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/storage"
)

func TestWriteFileCreatesParents(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "services-data", "left-off-temp", "out.md")

	if err := storage.WriteFile(path, []byte("# 20260301")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "# 20260301" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after write")
	}
}

func TestWriteStreamCountsBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	n, err := storage.WriteStream(path, strings.NewReader("0123456789"))
	if err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	if n != 10 {
		t.Errorf("n = %d, want 10", n)
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "left-off-7-day-summary.json")
	in := model.Summary{
		model.SummaryKey:     "Worked on the parser, fixed the CSV export.",
		model.SummaryTimeKey: "2026-03-01 23:04:00",
		"highlights":         []any{"parser", "csv"},
	}

	if err := storage.SaveSummary(path, in); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	out, err := storage.LoadSummary(path)
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if out.Text() != in.Text() {
		t.Errorf("summary = %q, want %q", out.Text(), in.Text())
	}
	if out[model.SummaryTimeKey] != in[model.SummaryTimeKey] {
		t.Errorf("datetime = %v, want %v", out[model.SummaryTimeKey], in[model.SummaryTimeKey])
	}

	// Writing the loaded value again must reproduce the file byte for byte.
	if err := storage.SaveSummary(path, out); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("round trip changed file:\n%s\n---\n%s", first, second)
	}
}

func TestLoadSummaryCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := storage.LoadSummary(path); err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if _, err := os.Stat(path + ".corrupt"); os.IsNotExist(err) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
}

func TestHoursCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project_time_entries.csv")
	in := model.HoursReport{
		CollectedAt: "2026-03-01 23:05:12",
		Projects: []model.ProjectHours{
			{ProjectName: "Backend, API", HoursWorked: 12.25},
			{ProjectName: `Say "hi"`, HoursWorked: 2},
			{ProjectName: "No Project", HoursWorked: 0.5},
		},
	}

	if err := storage.SaveHoursCSV(path, in); err != nil {
		t.Fatalf("SaveHoursCSV: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	wantHead := "project_name,hours_worked,datetime_collected\n\"Backend, API\",12.25,2026-03-01 23:05:12\n"
	if !strings.HasPrefix(string(first), wantHead) {
		t.Errorf("CSV prefix = %q, want %q", first, wantHead)
	}

	out, err := storage.LoadHoursCSV(path)
	if err != nil {
		t.Fatalf("LoadHoursCSV: %v", err)
	}
	if out.CollectedAt != in.CollectedAt {
		t.Errorf("CollectedAt = %q, want %q", out.CollectedAt, in.CollectedAt)
	}
	if len(out.Projects) != len(in.Projects) {
		t.Fatalf("projects = %d, want %d", len(out.Projects), len(in.Projects))
	}
	for i := range in.Projects {
		if out.Projects[i] != in.Projects[i] {
			t.Errorf("row %d = %+v, want %+v", i, out.Projects[i], in.Projects[i])
		}
	}

	if err := storage.SaveHoursCSV(path, out); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("round trip changed file:\n%s\n---\n%s", first, second)
	}
}

func TestLoadHoursCSVEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := storage.SaveHoursCSV(path, model.HoursReport{CollectedAt: "2026-03-01 23:00:00"}); err != nil {
		t.Fatal(err)
	}
	out, err := storage.LoadHoursCSV(path)
	if err != nil {
		t.Fatalf("LoadHoursCSV: %v", err)
	}
	if len(out.Projects) != 0 {
		t.Errorf("projects = %d, want 0", len(out.Projects))
	}
}
