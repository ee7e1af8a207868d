/*
SPDX-License-Identifier: GPL-3.0-or-later

Copyright (C) 2026 The ranger-tagenricher Authors

This file is part of ranger-tagenricher.

ranger-tagenricher is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ranger-tagenricher is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ranger-tagenricher. If not, see https://www.gnu.org/licenses/.
*/

// Package log configures the process-wide zerolog logger used across the
// enricher daemon and exposes the small set of helpers callers reach for.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(defaultWriter()).With().Timestamp().Logger()

func defaultWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// Init reconfigures the base logger, switching to structured JSON output
// when pretty is false (the production mode for the daemon).
func Init(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if pretty {
		w = defaultWriter()
	}
	base = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// With returns a logger with the given component name attached, the way
// each package in the daemon tags its own log lines.
func With(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

// Debug logs at debug level on the base logger.
func Debug(msg string) { base.Debug().Msg(msg) }

// Info logs at info level on the base logger.
func Info(msg string) { base.Info().Msg(msg) }

// Error logs at error level on the base logger with the error attached.
func Error(err error, msg string) { base.Error().Err(err).Msg(msg) }
