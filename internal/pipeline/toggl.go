package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/storage"
	"github.com/personalweb03/services/internal/timecalc"
	"github.com/personalweb03/services/internal/toggl"
)

// Toggl aggregates the last days of time entries per project into a CSV.
type Toggl struct {
	Config *config.Config
	Source TimeSource
	Logger *zap.Logger
	Now    func() time.Time
}

// TogglResult describes a successful run.
type TogglResult struct {
	Report      model.HoursReport
	CSVPath     string
	CollectedAt time.Time
	Entries     int
}

// Run executes the pipeline.
func (p *Toggl) Run(ctx context.Context) (*TogglResult, error) {
	log := p.Logger.With(zap.String("service", ServiceToggl))
	log.Info("Starting Toggl service")

	cfg := p.Config
	if err := cfg.ValidateToggl(); err != nil {
		log.Error("Configuration error", zap.Error(err))
		return nil, err
	}

	workspaces, err := p.Source.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	var projects []toggl.Project
	for _, ws := range workspaces {
		ps, err := p.Source.ListProjects(ctx, ws.ID)
		if err != nil {
			return nil, err
		}
		projects = append(projects, ps...)
	}

	now := nowOrDefault(p.Now)
	from, to := timecalc.LookbackRange(now, LookbackDays)
	entries, err := p.Source.ListEntries(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rows := timecalc.Aggregate(entries, projects)
	res := &TogglResult{
		Report: model.HoursReport{
			CollectedAt: now.Format(model.SummaryTimeLayout),
			Projects:    rows,
		},
		CSVPath:     cfg.HoursCSVPath(),
		CollectedAt: now,
		Entries:     len(entries),
	}
	for _, r := range rows {
		log.Debug("Project hours", zap.String("project", r.ProjectName), zap.Float64("hours", r.HoursWorked))
	}

	if err := storage.SaveHoursCSV(res.CSVPath, res.Report); err != nil {
		log.Error("Failed to save hours CSV", zap.Error(err))
		return nil, err
	}

	log.Info("Toggl service completed successfully",
		zap.String("csv_path", res.CSVPath),
		zap.Int("entries", res.Entries),
		zap.Int("projects", len(rows)),
	)
	return res, nil
}
