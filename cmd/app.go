package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/personalweb03/services/internal/cloudfile"
	"github.com/personalweb03/services/internal/config"
	"github.com/personalweb03/services/internal/gdrive"
	"github.com/personalweb03/services/internal/guardrail"
	"github.com/personalweb03/services/internal/history"
	"github.com/personalweb03/services/internal/logging"
	"github.com/personalweb03/services/internal/msgraph"
	"github.com/personalweb03/services/internal/pipeline"
	"github.com/personalweb03/services/internal/secret"
	"github.com/personalweb03/services/internal/summary"
	"github.com/personalweb03/services/internal/toggl"
)

// app is the state shared by every command of one process.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	secrets *secret.SSMResolver
	store   *history.Store
}

func envUsage() string { return config.Usage() }

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newApp loads the configuration, builds the logger and resolves "ssm:"
// settings. The history store is opened only when withHistory is set.
func newApp(ctx context.Context, withHistory bool) (*app, error) {
	cfg, err := config.Load(envFile, (*config.Config).ValidateLogging)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	log = log.With(zap.String("run_id", uuid.NewString()))

	a := &app{cfg: cfg, log: log}
	if !cfg.DataDirExists() {
		log.Warn("Data directory does not exist yet, it will be created", zap.String("path", cfg.DataDir()))
	}

	if cfg.HasSecretRefs() {
		r, err := secret.NewSSMResolverFromEnv(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := cfg.ResolveSecrets(ctx, r); err != nil {
			a.close()
			return nil, err
		}
		a.secrets = r
		log.Info("Resolved secrets from SSM Parameter Store")
	}

	if withHistory && cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryDBPath(), log)
		if err != nil {
			log.Warn("Run history disabled", zap.Error(err))
		} else {
			a.store = store
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Failed to close history database", zap.Error(err))
		}
	}
	a.log.Sync()
}

// exit flushes the logger and ends the process with code.
func (a *app) exit(code int) {
	a.close()
	os.Exit(code)
}

func (a *app) fileProvider() cloudfile.Provider {
	if a.cfg.LeftOff.Provider == config.ProviderGoogle {
		return gdrive.NewProvider(a.log)
	}
	return a.oneDrive()
}

func (a *app) oneDrive() *msgraph.Provider {
	var opts []msgraph.Option
	if a.cfg.LeftOff.Tenant != "" {
		opts = append(opts, msgraph.WithTenant(a.cfg.LeftOff.Tenant))
	}
	return msgraph.NewProvider(a.log, opts...)
}

// storeRefreshToken writes a new refresh token back to SSM when
// REFRESH_TOKEN came from there. Otherwise the token is printed so it can be
// copied into the environment by hand.
func (a *app) storeRefreshToken(ctx context.Context, token string) {
	if name, ok := a.cfg.RefreshTokenParam(); ok && a.secrets != nil {
		err := a.secrets.PutSecret(ctx, name, token)
		if err == nil {
			a.log.Info("Stored rotated refresh token", zap.String("parameter", name))
			return
		}
		a.log.Error("Failed to store rotated refresh token", zap.String("parameter", name), zap.Error(err))
	}
	a.log.Warn("Refresh token rotated, update REFRESH_TOKEN")
	fmt.Fprintf(os.Stderr, "New REFRESH_TOKEN: %s\n", token)
}

func runServices(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	leftOff, hours := runLeftOff, runToggl
	if !leftOff && !hours {
		code := guardrail.Enforce(a.log, time.Now(), a.cfg.WindowStart, runAnyway)
		if code != guardrail.ExitAllowed {
			a.exit(code)
		}
		leftOff, hours = true, true
	}

	runner := &pipeline.Runner{Logger: a.log}
	if a.store != nil {
		runner.Recorder = a.store
	}

	code := pipeline.ExitOK
	if leftOff {
		if c := runner.Track(ctx, pipeline.ServiceLeftOff, a.leftOff); c != pipeline.ExitOK {
			code = c
		}
	}
	if hours {
		c := runner.Track(ctx, pipeline.ServiceToggl, func(ctx context.Context, runID string) error {
			res, err := a.toggl(ctx)
			runner.RecordHours(ctx, runID, res)
			return err
		})
		if c != pipeline.ExitOK {
			code = c
		}
	}

	if code == pipeline.ExitOK {
		a.log.Info("All services completed successfully")
	} else {
		a.log.Error("One or more services failed")
	}
	a.exit(code)
	return nil
}

func (a *app) leftOff(ctx context.Context, _ string) error {
	p := &pipeline.LeftOff{
		Config: a.cfg,
		Files:  a.fileProvider(),
		Summarizer: summary.New(summary.Options{
			APIKey:  a.cfg.LeftOff.OpenAIKey,
			BaseURL: a.cfg.LeftOff.OpenAIBaseURL,
			Model:   a.cfg.LeftOff.OpenAIModel,
		}, a.log),
		Logger: a.log,
	}
	res, err := p.Run(ctx)
	if res != nil && res.RotatedRefreshToken != "" {
		a.storeRefreshToken(ctx, res.RotatedRefreshToken)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) toggl(ctx context.Context) (*pipeline.TogglResult, error) {
	p := &pipeline.Toggl{
		Config: a.cfg,
		Source: toggl.NewClient(a.cfg.Toggl.APIToken, a.log, toggl.WithBaseURL(a.cfg.Toggl.BaseURL)),
		Logger: a.log,
	}
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeReport(os.Stdout, res.Report, formatMarkdown); err != nil {
		return res, err
	}
	return res, nil
}
