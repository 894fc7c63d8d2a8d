package pipeline_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/personalweb03/services/internal/cloudfile"
	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/history"
	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/pipeline"
	"github.com/personalweb03/services/internal/storage"
	"github.com/personalweb03/services/internal/toggl"
)

var now = time.Date(2024, 1, 20, 23, 4, 0, 0, time.UTC)

const notes = "# 20240120\nshipped the parser\n## Next\nwire the CLI\n# 20240110\nold entry\n"

type fakeFiles struct {
	content     string
	rotated     bool
	authErr     error
	downloadErr error
	gotFileID   string
}

func (f *fakeFiles) Authenticate(_ context.Context, cred cloudfile.Credential) (*cloudfile.Session, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	s := &cloudfile.Session{AccessToken: "at", RefreshToken: cred.RefreshToken}
	if f.rotated {
		s.RefreshToken = "rt-rotated"
		s.Rotated = true
	}
	return s, nil
}

func (f *fakeFiles) Download(_ context.Context, _ *cloudfile.Session, fileID, dest string) error {
	f.gotFileID = fileID
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return storage.WriteFile(dest, []byte(f.content))
}

type fakeSummarizer struct {
	gotActivities string
	err           error
}

func (f *fakeSummarizer) Summarize(_ context.Context, activitiesPath, _ string) (model.Summary, error) {
	b, err := os.ReadFile(activitiesPath)
	if err != nil {
		return nil, err
	}
	f.gotActivities = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return model.Summary{"summary": "You shipped the parser.", "datetime_summary": "2024-01-20 23:04:00"}, nil
}

func leftOffConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ProjectResources: t.TempDir(),
		LeftOff: config.LeftOff{
			TargetFileName: "LEFT-OFF.md",
			TargetFileID:   "file-1",
			ApplicationID:  "app",
			ClientSecret:   "secret",
			RefreshToken:   "rt",
			OpenAIKey:      "sk",
			Provider:       "onedrive",
		},
	}
}

func TestLeftOffRun(t *testing.T) {
	cfg := leftOffConfig(t)
	files := &fakeFiles{content: notes}
	sum := &fakeSummarizer{}
	p := &pipeline.LeftOff{Config: cfg, Files: files, Summarizer: sum, Logger: zaptest.NewLogger(t), Now: func() time.Time { return now }}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if files.gotFileID != "file-1" {
		t.Errorf("downloaded %q", files.gotFileID)
	}
	wantActivities := "# 20240120\nshipped the parser\n## Next\nwire the CLI"
	if sum.gotActivities != wantActivities {
		t.Errorf("activities = %q, want %q", sum.gotActivities, wantActivities)
	}
	if res.RotatedRefreshToken != "" {
		t.Errorf("RotatedRefreshToken = %q, want empty", res.RotatedRefreshToken)
	}

	saved, err := storage.LoadSummary(cfg.SummaryPath())
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if saved.Text() != "You shipped the parser." {
		t.Errorf("saved summary = %v", saved)
	}
}

func TestLeftOffRotatedTokenSurvivesFailure(t *testing.T) {
	cfg := leftOffConfig(t)
	files := &fakeFiles{rotated: true, downloadErr: &cloudfile.DownloadError{FileID: "file-1", StatusCode: 404}}
	p := &pipeline.LeftOff{Config: cfg, Files: files, Summarizer: &fakeSummarizer{}, Logger: zaptest.NewLogger(t), Now: func() time.Time { return now }}

	res, err := p.Run(context.Background())
	var dlErr *cloudfile.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("error = %v, want *cloudfile.DownloadError", err)
	}
	if res == nil || res.RotatedRefreshToken != "rt-rotated" {
		t.Errorf("result = %+v, want the rotated token", res)
	}
	if _, err := os.Stat(cfg.SummaryPath()); !os.IsNotExist(err) {
		t.Error("summary written despite failure")
	}
}

func TestLeftOffAborts(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		files   *fakeFiles
		sumErr  error
		wantErr func(error) bool
	}{
		{
			name:    "missing config",
			mutate:  func(c *config.Config) { c.LeftOff.TargetFileID = "" },
			files:   &fakeFiles{content: notes},
			wantErr: func(err error) bool { var e *config.Error; return errors.As(err, &e) },
		},
		{
			name:    "auth failure",
			files:   &fakeFiles{authErr: &cloudfile.AuthError{Code: "invalid_grant"}},
			wantErr: func(err error) bool { var e *cloudfile.AuthError; return errors.As(err, &e) },
		},
		{
			name:    "summary failure",
			files:   &fakeFiles{content: notes},
			sumErr:  errors.New("upstream exploded"),
			wantErr: func(err error) bool { return err != nil && strings.Contains(err.Error(), "upstream exploded") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := leftOffConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			p := &pipeline.LeftOff{Config: cfg, Files: tt.files, Summarizer: &fakeSummarizer{err: tt.sumErr}, Logger: zaptest.NewLogger(t)}
			_, err := p.Run(context.Background())
			if !tt.wantErr(err) {
				t.Errorf("unexpected error %v", err)
			}
			if _, err := os.Stat(cfg.SummaryPath()); !os.IsNotExist(err) {
				t.Error("summary written despite failure")
			}
		})
	}
}

type fakeSource struct {
	workspaces []toggl.Workspace
	projects   map[int64][]toggl.Project
	entries    []toggl.TimeEntry
	err        error
	gotStart   time.Time
	gotEnd     time.Time
}

func (f *fakeSource) ListWorkspaces(context.Context) ([]toggl.Workspace, error) {
	return f.workspaces, f.err
}

func (f *fakeSource) ListProjects(_ context.Context, id int64) ([]toggl.Project, error) {
	return f.projects[id], nil
}

func (f *fakeSource) ListEntries(_ context.Context, start, end time.Time) ([]toggl.TimeEntry, error) {
	f.gotStart, f.gotEnd = start, end
	return f.entries, nil
}

func id(v int64) *int64 { return &v }

func TestTogglRun(t *testing.T) {
	cfg := &config.Config{ProjectResources: t.TempDir(), Toggl: config.Toggl{APIToken: "tok"}}
	src := &fakeSource{
		workspaces: []toggl.Workspace{{ID: 1}, {ID: 2}},
		projects: map[int64][]toggl.Project{
			1: {{ID: 10, Name: "A"}},
			2: {{ID: 20, Name: "B"}},
		},
		entries: []toggl.TimeEntry{
			{ProjectID: id(10), Duration: 3600},
			{ProjectID: id(10), Duration: 1800},
			{ProjectID: nil, Duration: -5},
			{ProjectID: id(20), Duration: 7200},
		},
	}
	p := &pipeline.Toggl{Config: cfg, Source: src, Logger: zaptest.NewLogger(t), Now: func() time.Time { return now }}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC); !src.gotStart.Equal(want) {
		t.Errorf("start = %v, want %v", src.gotStart, want)
	}
	if want := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC); !src.gotEnd.Equal(want) {
		t.Errorf("end = %v, want %v", src.gotEnd, want)
	}

	data, err := os.ReadFile(cfg.HoursCSVPath())
	if err != nil {
		t.Fatal(err)
	}
	want := "project_name,hours_worked,datetime_collected\n" +
		"B,2.00,2024-01-20 23:04:00\n" +
		"A,1.50,2024-01-20 23:04:00\n"
	if string(data) != want {
		t.Errorf("CSV = %q, want %q", data, want)
	}
	if res.Entries != 4 || len(res.Report.Projects) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestTogglRunErrors(t *testing.T) {
	cfg := &config.Config{ProjectResources: t.TempDir()}
	p := &pipeline.Toggl{Config: cfg, Source: &fakeSource{}, Logger: zaptest.NewLogger(t)}
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("expected a configuration error")
	}

	cfg.Toggl.APIToken = "tok"
	apiErr := &toggl.APIError{Op: "list workspaces", StatusCode: 403}
	p.Source = &fakeSource{err: apiErr}
	if _, err := p.Run(context.Background()); !errors.Is(err, apiErr) {
		t.Errorf("error = %v, want %v", err, apiErr)
	}
	if _, err := os.Stat(cfg.HoursCSVPath()); !os.IsNotExist(err) {
		t.Error("CSV written despite failure")
	}
}

type memRecorder struct {
	runs  []history.Run
	hours map[string][]model.ProjectHours
}

func (m *memRecorder) RecordRun(_ context.Context, r history.Run) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *memRecorder) RecordProjectHours(_ context.Context, runID string, _ time.Time, rows []model.ProjectHours) error {
	if m.hours == nil {
		m.hours = map[string][]model.ProjectHours{}
	}
	m.hours[runID] = rows
	return nil
}

func TestRunnerTrack(t *testing.T) {
	rec := &memRecorder{}
	ids := []string{"run-1", "run-2"}
	r := &pipeline.Runner{
		Recorder: rec,
		Logger:   zaptest.NewLogger(t),
		Now:      func() time.Time { return now },
		NewID:    func() string { id := ids[0]; ids = ids[1:]; return id },
	}

	code := r.Track(context.Background(), pipeline.ServiceToggl, func(ctx context.Context, runID string) error {
		r.RecordHours(ctx, runID, &pipeline.TogglResult{Report: model.HoursReport{Projects: []model.ProjectHours{{ProjectName: "A", HoursWorked: 1}}}})
		return nil
	})
	if code != pipeline.ExitOK {
		t.Errorf("code = %d", code)
	}
	code = r.Track(context.Background(), pipeline.ServiceLeftOff, func(context.Context, string) error {
		return errors.New("boom")
	})
	if code != pipeline.ExitFailure {
		t.Errorf("code = %d", code)
	}

	if len(rec.runs) != 2 {
		t.Fatalf("runs = %+v", rec.runs)
	}
	if rec.runs[0].ID != "run-1" || rec.runs[0].ExitCode != 0 || rec.runs[0].Service != "toggl" {
		t.Errorf("run 1 = %+v", rec.runs[0])
	}
	if rec.runs[1].ExitCode != 1 || rec.runs[1].Error != "boom" {
		t.Errorf("run 2 = %+v", rec.runs[1])
	}
	if len(rec.hours["run-1"]) != 1 {
		t.Errorf("hours = %+v", rec.hours)
	}
}

func TestRunnerWithoutRecorder(t *testing.T) {
	r := &pipeline.Runner{Logger: zaptest.NewLogger(t)}
	if code := r.Track(context.Background(), "x", func(context.Context, string) error { return nil }); code != 0 {
		t.Errorf("code = %d", code)
	}
	r.RecordHours(context.Background(), "id", &pipeline.TogglResult{})
}
