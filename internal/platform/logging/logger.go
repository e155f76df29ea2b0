package logging

import (
	"io"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// NewLogger builds the CLI's structured logger, honoring the same log-level
// vocabulary as runtime.AppConfig.LogLevel ("debug", "info", "warn", "error").
func NewLogger(out io.Writer, level string) *charmlog.Logger {
	logger := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "better-webhook",
	})
	logger.SetLevel(parseLevel(level))
	return logger
}

func parseLevel(level string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
