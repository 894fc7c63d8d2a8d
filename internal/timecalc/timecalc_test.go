package timecalc_test

import (
	"testing"
	"time"

	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/timecalc"
	"github.com/personalweb03/services/internal/toggl"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRoundHours(t *testing.T) {
	tests := []struct {
		seconds int64
		want    float64
	}{
		{0, 0},
		{3600, 1},
		{5400, 1.5},
		{1800, 0.5},
		{60, 0.02},
		{100, 0.03},
		{12345, 3.43},
		{54, 0.01},
		{450, 0.12},
		{1350, 0.38},
	}
	for _, tt := range tests {
		if got := timecalc.RoundHours(tt.seconds); got != tt.want {
			t.Errorf("RoundHours(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestParseDateStamp(t *testing.T) {
	got, err := timecalc.ParseDateStamp("20240110", time.UTC)
	if err != nil {
		t.Fatalf("ParseDateStamp: %v", err)
	}
	if want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDateStamp = %v, want %v", got, want)
	}
	for _, bad := range []string{"20240231", "20241301", "2024011", "abcdefgh"} {
		if _, err := timecalc.ParseDateStamp(bad, time.UTC); err == nil {
			t.Errorf("ParseDateStamp(%q) should fail", bad)
		}
	}
	if s := timecalc.DateStamp(got); s != "20240110" {
		t.Errorf("DateStamp = %q", s)
	}
}

func TestLookbackRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 4, 0, 0, time.UTC)
	from, to := timecalc.LookbackRange(now, 7)

	if want := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	got := timecalc.DaysAgo(now, 8)
	if timecalc.DateStamp(got) != "20240112" {
		t.Errorf("DaysAgo(now, 8) = %s, want 20240112", timecalc.DateStamp(got))
	}
}

func id(v int64) *int64 { return &v }

func TestAggregate(t *testing.T) {
	entries := []toggl.TimeEntry{
		{ProjectID: id(1), Duration: 3600},
		{ProjectID: id(1), Duration: 1800},
		{ProjectID: nil, Duration: -5},
		{ProjectID: id(2), Duration: 7200},
	}
	projects := []toggl.Project{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}

	got := timecalc.Aggregate(entries, projects)
	want := []model.ProjectHours{
		{ProjectName: "B", HoursWorked: 2.0},
		{ProjectName: "A", HoursWorked: 1.5},
	}
	if len(got) != len(want) {
		t.Fatalf("Aggregate = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAggregateBuckets(t *testing.T) {
	entries := []toggl.TimeEntry{
		{ProjectID: nil, Duration: 900},
		{ProjectID: id(99), Duration: 900},
		{ProjectID: id(1), Duration: 0},
		{ProjectID: nil, Duration: 900},
	}
	projects := []toggl.Project{{ID: 1, Name: "A"}}

	got := timecalc.Aggregate(entries, projects)
	want := []model.ProjectHours{
		{ProjectName: "No Project", HoursWorked: 0.5},
		{ProjectName: "Unknown Project (99)", HoursWorked: 0.25},
	}
	if len(got) != len(want) {
		t.Fatalf("Aggregate = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAggregateStableTies(t *testing.T) {
	entries := []toggl.TimeEntry{
		{ProjectID: id(3), Duration: 3600},
		{ProjectID: id(1), Duration: 3600},
		{ProjectID: id(2), Duration: 7200},
		{ProjectID: id(4), Duration: 3600},
	}
	projects := []toggl.Project{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}, {ID: 4, Name: "D"}}

	got := timecalc.Aggregate(entries, projects)
	order := []string{"B", "C", "A", "D"}
	for i, name := range order {
		if got[i].ProjectName != name {
			t.Errorf("position %d = %q, want %q", i, got[i].ProjectName, name)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := timecalc.Aggregate(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Aggregate(nil, nil) = %#v, want empty non-nil slice", got)
	}
}
