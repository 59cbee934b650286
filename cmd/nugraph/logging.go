// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/nugraph/nugraph/internal/config"
)

// newLogger builds the process logger: a charm logger used as the slog
// handler. Verbose mode logs at Debug with timestamps; otherwise only
// warnings and errors are shown so stderr stays quiet on success.
func newLogger(w io.Writer, ui config.UIConfig) *slog.Logger {
	level := log.WarnLevel
	if ui.Verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch ui.LogFormat {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: ui.Verbose,
	})
	return slog.New(logger)
}
