package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/personalweb03/services/internal/cloudfile"
	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/document"
	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/storage"
	"github.com/personalweb03/services/internal/timecalc"
)

// LeftOff downloads the notes document, extracts the last days and stores
// the model's summary.
type LeftOff struct {
	Config     *config.Config
	Files      cloudfile.Provider
	Summarizer Summarizer
	Logger     *zap.Logger
	Now        func() time.Time
}

// LeftOffResult describes a run. It is returned even on failure once
// authentication succeeded, so a rotated refresh token is never lost.
type LeftOffResult struct {
	Summary     model.Summary
	SummaryPath string
	Extraction  *document.Extraction
	// RotatedRefreshToken is set when the provider replaced the refresh
	// token; it must be stored in place of REFRESH_TOKEN.
	RotatedRefreshToken string
}

// Run executes the pipeline.
func (p *LeftOff) Run(ctx context.Context) (*LeftOffResult, error) {
	log := p.Logger.With(zap.String("service", ServiceLeftOff))
	log.Info("Starting LEFT-OFF service")

	cfg := p.Config
	if err := cfg.ValidateLeftOff(); err != nil {
		log.Error("Configuration error", zap.Error(err))
		return nil, err
	}
	log.Info("LEFT-OFF configuration validated successfully")

	log.Info("Step 1: Downloading notes document", zap.String("provider", cfg.LeftOff.Provider))
	session, err := p.Files.Authenticate(ctx, cloudfile.Credential{
		ApplicationID: cfg.LeftOff.ApplicationID,
		ClientSecret:  cfg.LeftOff.ClientSecret,
		RefreshToken:  cfg.LeftOff.RefreshToken,
	})
	if err != nil {
		log.Error("Failed to obtain access token", zap.Error(err))
		return nil, err
	}

	res := &LeftOffResult{SummaryPath: cfg.SummaryPath()}
	if session.Rotated {
		res.RotatedRefreshToken = session.RefreshToken
	}

	docPath := cfg.DocumentPath()
	if err := p.Files.Download(ctx, session, cfg.LeftOff.TargetFileID, docPath); err != nil {
		log.Error("Failed to download notes document", zap.Error(err))
		return res, err
	}

	log.Info("Step 2: Parsing document and extracting last 7 days")
	doc, err := document.Load(docPath)
	if err != nil {
		log.Error("Failed to load document", zap.Error(err))
		return res, err
	}

	now := nowOrDefault(p.Now)
	ex, err := document.ExtractRecent(doc, cfg.ActivitiesPath(), LookbackDays, now)
	if err != nil {
		log.Error("Failed to extract last 7 days", zap.Error(err))
		return res, err
	}
	res.Extraction = ex
	if ex.Found {
		log.Info("Found cutoff date",
			zap.String("cutoff", timecalc.DateStamp(ex.Cutoff)),
			zap.Int("paragraph", ex.CutoffIndex),
		)
	} else {
		log.Warn("No cutoff date found - extracting entire document",
			zap.String("cutoff", timecalc.DateStamp(ex.Cutoff)),
		)
	}
	log.Info("Extracted content saved",
		zap.String("path", cfg.ActivitiesPath()),
		zap.Int("paragraphs", len(ex.Paragraphs)),
		zap.Int("characters", len(ex.Content)),
	)

	log.Info("Step 3: Generating AI-powered summary")
	s, err := p.Summarizer.Summarize(ctx, cfg.ActivitiesPath(), cfg.LeftOff.TemplatePath)
	if err != nil {
		log.Error("Failed to generate summary", zap.Error(err))
		return res, err
	}
	if err := storage.SaveSummary(res.SummaryPath, s); err != nil {
		log.Error("Failed to save summary", zap.Error(err))
		return res, err
	}
	res.Summary = s

	log.Info("LEFT-OFF service completed successfully", zap.String("summary_path", res.SummaryPath))
	return res, nil
}
