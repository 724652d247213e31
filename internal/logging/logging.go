// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w at the given level. Pretty output is a
// coloured console format for local development; otherwise lines are JSON.
// Unknown levels fall back to info.
func New(level string, pretty bool, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{
			Out:         w,
			TimeFormat:  time.TimeOnly,
			FormatLevel: formatLevel,
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Install sets l as the global logger used by components that were not given
// one explicitly.
func Install(l zerolog.Logger) {
	log.Logger = l
	zerolog.SetGlobalLevel(l.GetLevel())
}

func formatLevel(i interface{}) string {
	switch fmt.Sprint(i) {
	case zerolog.LevelDebugValue:
		return color.MagentaString("DBG")
	case zerolog.LevelInfoValue:
		return color.CyanString("INF")
	case zerolog.LevelWarnValue:
		return color.YellowString("WRN")
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue:
		return color.New(color.FgRed, color.Bold).Sprint("ERR")
	default:
		return "???"
	}
}
