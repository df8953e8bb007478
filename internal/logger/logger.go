// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

// Init builds the process logger. Service output drops timestamps since the
// journal adds its own.
func Init(level string, isService bool) {
	InitWriter(os.Stdout, level, isService)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
		output.NoColor = true
	}

	log = zerolog.New(output).With().Timestamp().Logger()
	SetLevel(level)
}

// SetLevel sets the global level by name; unknown names fall back to info.
func SetLevel(level string) {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// IsService checks if the process runs under an init system
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// With returns a child logger tagged with component, for injection into
// packages that must not log through globals.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Debug logs a debug message
func Debug() *zerolog.Event { return log.Debug() }

// Info logs an info message
func Info() *zerolog.Event { return log.Info() }

// Warn logs a warning message
func Warn() *zerolog.Event { return log.Warn() }

// Error logs an error message
func Error() *zerolog.Event { return log.Error() }

// Fatal logs a fatal message and exits the program
func Fatal() *zerolog.Event { return log.Fatal() }
