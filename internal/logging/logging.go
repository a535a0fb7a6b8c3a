/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stdout)
}

// SetupWithWriter configures zerolog to write to out. Development output is
// human-readable at debug level; every other environment logs JSON at info.
func SetupWithWriter(environment string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	writer := out
	if environment == "development" {
		level = zerolog.DebugLevel
		writer = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
