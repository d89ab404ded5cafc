// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// conductor writes lifecycle and error events to one JSON log per day under
// `<root>/logs/YYYY-MM-DD.log`.  When running in an interactive TTY we tee
// the same events to stdout.  Rotation, compression, and retention are
// handled by Lumberjack; no external log-rotate job is required.
//
// Supervisor and workers share the directory.  Each process writes its own
// file suffixed with the pid when it is a worker, so Lumberjack never
// rotates a file another process still holds.
//
// Usage
// -----
//
//	log, err := logger.New(cfg.Paths.Root, logger.Options{Tee: tty})
//	if err != nil { … }
//	log.Infow("worker online", "pid", os.Getpid())
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • Oxford commas, two spaces after periods.
package logger

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tunes New.  The zero value logs at info without a console tee.
type Options struct {
	Level  string // debug, info, warn, error
	Tee    bool   // also write to stdout
	Worker bool   // suffix the file name with the pid
}

// New returns a *zap.SugaredLogger that writes JSON to /logs/YYYY-MM-DD.log.
// The logger is installed as the process-wide default via
// zap.ReplaceGlobals.
func New(rootDir string, opts Options) (*zap.SugaredLogger, error) {
	logDir := filepath.Join(rootDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	fileName := time.Now().Format("2006-01-02")
	if opts.Worker {
		fileName += "." + strconv.Itoa(os.Getpid())
	}
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName+".log"),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	level := ParseLevel(opts.Level)

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		MessageKey:    "msg",
		CallerKey:     "caller",
		StacktraceKey: "stack",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}

	if opts.Tee {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
		zap.AddCaller(),
		zap.Fields(zap.Int("pid", os.Getpid())),
	).Sugar()

	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "tee", opts.Tee, "level", level.String())
	return z, nil
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
