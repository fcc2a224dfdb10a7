package telemetry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogOptions struct {
	Debug bool
	// when set, logs are also written to this file, rotated by size
	File string
	// defaults to stderr
	Output io.Writer
}

// InitSlog installs the default logger, the returned closer releases the
// log file.
func InitSlog(opts LogOptions) (io.Closer, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		err := os.MkdirAll(filepath.Dir(opts.File), 0750)
		if err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotator)
		closer = rotator
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
