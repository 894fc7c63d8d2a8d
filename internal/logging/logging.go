// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/personalweb03/services/internal/config"
)

const megabyte = 1 << 20

// New returns a logger for cfg. Development logs go to stderr with colored
// levels at debug; production logs go to <Dir>/<AppName>.log at info,
// rotated by size.
func New(cfg config.Log) (*zap.Logger, error) {
	if cfg.Production() {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("PATH_TO_LOGS is required in production")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		return build(cfg, FileWriter(cfg), zapcore.InfoLevel, false), nil
	}
	return build(cfg, os.Stderr, zapcore.DebugLevel, true), nil
}

// FileWriter returns the rotating writer used in production.
func FileWriter(cfg config.Log) *lumberjack.Logger {
	size := int(cfg.MaxSize / megabyte)
	if size < 1 {
		size = 1
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.AppName+".log"),
		MaxSize:    size,
		MaxBackups: cfg.MaxFiles,
		Compress:   true,
	}
}

func build(cfg config.Log, w io.Writer, level zapcore.Level, color bool) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("app", cfg.AppName))
}
