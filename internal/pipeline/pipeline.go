// Package pipeline sequences the steps of each service. Every step runs to
// completion before the next starts and the first failure aborts the run.
package pipeline

import (
	"context"
	"time"

	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/toggl"
)

// Service names, as recorded in the run history.
const (
	ServiceLeftOff = "left-off"
	ServiceToggl   = "toggl"
)

// LookbackDays is the reporting window of both services.
const LookbackDays = 7

// Summarizer produces the summary JSON from the extracted notes.
type Summarizer interface {
	Summarize(ctx context.Context, activitiesPath, templatePath string) (model.Summary, error)
}

// TimeSource lists time tracking data.
type TimeSource interface {
	ListWorkspaces(ctx context.Context) ([]toggl.Workspace, error)
	ListProjects(ctx context.Context, workspaceID int64) ([]toggl.Project, error)
	ListEntries(ctx context.Context, start, end time.Time) ([]toggl.TimeEntry, error)
}

func nowOrDefault(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
