// Package config loads settings from the environment and an optional .env
// file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/personalweb03/services/internal/secret"
)

// Output layout under the data directory.
const (
	DataDirName    = "services-data"
	TempDirName    = "left-off-temp"
	ActivitiesFile = "last-7-days-activities.md"
	SummaryFile    = "left-off-7-day-summary.json"
	HoursCSVFile   = "project_time_entries.csv"
	HistoryDBFile  = "history.db"
)

// Accepted CLOUD_PROVIDER values.
const (
	ProviderOneDrive = "onedrive"
	ProviderGoogle   = "gdrive"
)

const (
	// EnvProduction is the RUN_ENVIRONMENT value that enables file logging.
	EnvProduction = "production"
	// DefaultEnvFile is read when no env file is named.
	DefaultEnvFile = ".env"

	resourcesKey    = "PATH_PROJECT_RESOURCES"
	refreshTokenKey = "REFRESH_TOKEN"
)

// Config is the complete set of settings.
type Config struct {
	ProjectResources string `env:"PATH_PROJECT_RESOURCES" env-description:"root folder holding services-data"`
	WindowStart      string `env:"TIME_WINDOW_START" env-default:"23:00" env-description:"start of the 10 minute run window (HH:MM)"`

	LeftOff LeftOff
	Toggl   Toggl
	Log     Log
	History History

	// refs keeps the parameter name of every setting resolved from SSM,
	// keyed by environment variable.
	refs map[string]string
}

// LeftOff holds the notes summary settings.
type LeftOff struct {
	TargetFileName string `env:"NAME_TARGET_FILE" env-default:"LEFT-OFF.docx"`
	TargetFileID   string `env:"TARGET_FILE_ID"`
	ApplicationID  string `env:"APPLICATION_ID"`
	ClientSecret   string `env:"CLIENT_SECRET"`
	RefreshToken   string `env:"REFRESH_TOKEN"`
	Provider       string `env:"CLOUD_PROVIDER" env-default:"onedrive"`
	Tenant         string `env:"MS_TENANT" env-default:"consumers" env-description:"Microsoft identity tenant for CLOUD_PROVIDER=onedrive"`
	OpenAIBaseURL  string `env:"URL_BASE_OPENAI" env-default:"https://api.openai.com/v1"`
	OpenAIKey      string `env:"KEY_OPENAI"`
	OpenAIModel    string `env:"MODEL_OPENAI" env-default:"gpt-4o-mini"`
	TemplatePath   string `env:"PATH_SUMMARY_TEMPLATE"`
}

// Toggl holds the time tracking settings.
type Toggl struct {
	APIToken string `env:"TOGGL_API_TOKEN"`
	BaseURL  string `env:"URL_BASE_TOGGL" env-default:"https://api.track.toggl.com/api/v9"`
}

// Log holds the logging settings.
type Log struct {
	AppName     string `env:"NAME_APP"`
	Environment string `env:"RUN_ENVIRONMENT" env-default:"development"`
	Dir         string `env:"PATH_TO_LOGS"`
	MaxSize     int64  `env:"LOG_MAX_SIZE" env-default:"10485760"`
	MaxFiles    int    `env:"LOG_MAX_FILES" env-default:"10"`
}

// Production reports whether logs go to a rotating file.
func (l Log) Production() bool { return l.Environment == EnvProduction }

// History holds the run ledger settings.
type History struct {
	Enabled bool   `env:"HISTORY_ENABLED" env-default:"true"`
	DBPath  string `env:"PATH_HISTORY_DB"`
}

// Error reports missing or malformed settings. Missing lists every absent
// key, not just the first.
type Error struct {
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	msg := "missing required environment variables: " + strings.Join(e.Missing, ", ")
	if e.Err != nil {
		msg += "; " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Check validates a loaded Config, e.g. (*Config).ValidateLogging.
type Check func(*Config) error

// Load reads envFile (or ./.env when envFile is empty and the file exists)
// into the process environment without overriding variables already set,
// then parses the environment. PATH_PROJECT_RESOURCES is always required;
// the missing keys reported by checks are added to the same *Error.
func Load(envFile string, checks ...Check) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, &Error{Err: fmt.Errorf("loading %s: %w", envFile, err)}
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Err: fmt.Errorf("loading %s: %w", DefaultEnvFile, err)}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("reading environment: %w", err)}
	}
	var errs []error
	if strings.TrimSpace(cfg.ProjectResources) == "" {
		errs = append(errs, &Error{Missing: []string{resourcesKey}})
	}
	for _, check := range checks {
		if err := check(&cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := merge(errs); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge folds errs into one *Error holding every missing key.
func merge(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	out := &Error{}
	var other []error
	for _, err := range errs {
		var e *Error
		if !errors.As(err, &e) {
			other = append(other, err)
			continue
		}
		out.Missing = append(out.Missing, e.Missing...)
		if e.Err != nil {
			other = append(other, e.Err)
		}
	}
	if len(other) > 0 {
		out.Err = errors.Join(other...)
	}
	return out
}

// Usage describes every supported variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}

func missing(pairs ...string) error {
	var keys []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			keys = append(keys, pairs[i])
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return &Error{Missing: keys}
}

// ValidateLeftOff checks the settings the notes summary needs.
func (c *Config) ValidateLeftOff() error {
	if err := missing(
		"TARGET_FILE_ID", c.LeftOff.TargetFileID,
		"APPLICATION_ID", c.LeftOff.ApplicationID,
		"CLIENT_SECRET", c.LeftOff.ClientSecret,
		refreshTokenKey, c.LeftOff.RefreshToken,
		"KEY_OPENAI", c.LeftOff.OpenAIKey,
	); err != nil {
		return err
	}
	switch c.LeftOff.Provider {
	case ProviderOneDrive, ProviderGoogle:
		return nil
	default:
		return &Error{Err: fmt.Errorf("CLOUD_PROVIDER must be %q or %q, got %q", ProviderOneDrive, ProviderGoogle, c.LeftOff.Provider)}
	}
}

// ValidateToggl checks the settings the hours export needs.
func (c *Config) ValidateToggl() error {
	return missing("TOGGL_API_TOKEN", c.Toggl.APIToken)
}

// ValidateLogging checks the logging settings.
func (c *Config) ValidateLogging() error {
	if c.Log.Production() {
		return missing("NAME_APP", c.Log.AppName, "PATH_TO_LOGS", c.Log.Dir)
	}
	return missing("NAME_APP", c.Log.AppName)
}

// DataDir is <PATH_PROJECT_RESOURCES>/services-data.
func (c *Config) DataDir() string {
	return filepath.Join(c.ProjectResources, DataDirName)
}

// DataDirExists reports whether the data directory is present. The services
// create it on demand, so a missing directory only merits a warning.
func (c *Config) DataDirExists() bool {
	info, err := os.Stat(c.DataDir())
	return err == nil && info.IsDir()
}

// DocumentPath is where the notes document is downloaded to.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.DataDir(), TempDirName, c.LeftOff.TargetFileName)
}

// ActivitiesPath is where the extracted markdown is written.
func (c *Config) ActivitiesPath() string {
	return filepath.Join(c.DataDir(), TempDirName, ActivitiesFile)
}

// SummaryPath is where the summary JSON is written.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.DataDir(), SummaryFile)
}

// HoursCSVPath is where the hours CSV is written.
func (c *Config) HoursCSVPath() string {
	return filepath.Join(c.DataDir(), HoursCSVFile)
}

// HistoryDBPath is PATH_HISTORY_DB or <data>/history.db.
func (c *Config) HistoryDBPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.DataDir(), HistoryDBFile)
}

// secretFields maps each secret-bearing variable to its field.
func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"APPLICATION_ID":  &c.LeftOff.ApplicationID,
		"CLIENT_SECRET":   &c.LeftOff.ClientSecret,
		refreshTokenKey:   &c.LeftOff.RefreshToken,
		"KEY_OPENAI":      &c.LeftOff.OpenAIKey,
		"TOGGL_API_TOKEN": &c.Toggl.APIToken,
	}
}

// HasSecretRefs reports whether any secret setting is an "ssm:" reference.
func (c *Config) HasSecretRefs() bool {
	for _, p := range c.secretFields() {
		if _, ok := secret.ParseRef(*p); ok {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every "ssm:" reference with the value fetched
// through r. Failures for all keys are reported together.
func (c *Config) ResolveSecrets(ctx context.Context, r secret.Resolver) error {
	var errs []error
	for key, p := range c.secretFields() {
		name, ok := secret.ParseRef(*p)
		if !ok {
			continue
		}
		val, err := r.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if c.refs == nil {
			c.refs = map[string]string{}
		}
		c.refs[key] = name
		*p = val
	}
	if len(errs) > 0 {
		return &Error{Err: errors.Join(errs...)}
	}
	return nil
}

// RefreshTokenParam returns the SSM parameter REFRESH_TOKEN was resolved
// from, if any.
func (c *Config) RefreshTokenParam() (string, bool) {
	name, ok := c.refs[refreshTokenKey]
	return name, ok
}
