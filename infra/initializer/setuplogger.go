package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/finplan/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var levelColors = map[log.Level]struct {
	icon  string
	color lipgloss.AdaptiveColor
}{
	log.DebugLevel: {"🐛", lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#B39DDB"}},
	log.InfoLevel:  {"ℹ️", lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}},
	log.WarnLevel:  {"⚠️", lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}},
	log.ErrorLevel: {"❌", lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}},
}

// highlighted keys get a colored key and a bold value.
var highlighted = map[string]log.Level{
	"error":   log.ErrorLevel,
	"user_id": log.InfoLevel,
	"month":   log.InfoLevel,
	"goal_id": log.InfoLevel,
	"stage":   log.WarnLevel,
	"prefix":  log.DebugLevel,
	"caller":  log.DebugLevel,
	"time":    log.DebugLevel,
}

func setupLogger(cfg *config.Log) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Log) *slog.Logger {
	if cfg == nil {
		cfg = &config.Log{Format: "text"}
	}
	styles := log.DefaultStyles()
	for level, lc := range levelColors {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(lc.icon).
			Bold(true).
			Padding(0, 1).
			Foreground(lc.color)
	}
	for key, level := range highlighted {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(levelColors[level].color)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(styles)

	slogger := slog.New(logger)
	slog.SetDefault(slogger)
	return slogger
}
