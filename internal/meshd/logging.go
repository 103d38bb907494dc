package meshd

import (
	"io"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/nodecore/mle/internal/meshconfig"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process-wide structured logger via
// [slogutil.New], writing to stdout unless a log file is configured, in
// which case lumberjack handles rotation underneath it.
func newLogger(cfg meshconfig.LogSettings) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}

	return slogutil.New(&slogutil.Config{
		Format:       slogutil.FormatDefault,
		Level:        level,
		Output:       out,
		AddTimestamp: true,
	})
}
