// Package logger builds the process logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls level, format and destination of log output.
type Config struct {
	// trace, debug, info, warn, error
	Level string `env:"LEVEL" envDefault:"info"`
	// text or json
	Format string `env:"FORMAT" envDefault:"text"`
	// stdout, stderr, file or both (file and stdout)
	Output string `env:"OUTPUT" envDefault:"stdout"`

	File       string `env:"FILE" envDefault:"logs/panic-list.log"`
	MaxSizeMB  int    `env:"MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"MAX_AGE" envDefault:"7"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// DefaultConfig is text output at info level on stdout.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", Output: "stdout"}
}

// New builds a logger for cfg. The returned io.Closer releases the rotating
// file, if any; it is never nil.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		closer = rotating
		if strings.EqualFold(cfg.Output, "both") {
			l.SetOutput(io.MultiWriter(rotating, os.Stdout))
		} else {
			l.SetOutput(rotating)
		}
	default:
		return nil, nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
