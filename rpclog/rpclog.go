// Package rpclog builds the leveled loggers handed to every component.
//
// Components never reach for a process-wide logger: they receive a *logging.Logger
// at construction. Setup is the one place that configures the process default and
// is meant to be called from main only.
package rpclog

import (
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

// LevelEnv overrides the default level passed to Setup.
const LevelEnv = "HTTPRPC_LOG_LEVEL"

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}%{color:reset}`,
)

var plainFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}`,
)

// Setup configures the process default backend on stderr and returns the logger for
// prefix. The level comes from HTTPRPC_LOG_LEVEL when set, defaultLevel otherwise.
func Setup(prefix string, defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(ParseLevel(os.Getenv(LevelEnv), defaultLevel), "")
	logging.SetBackend(leveled)
	return logging.MustGetLogger(prefix)
}

// ParseLevel maps a level name (case-insensitive) to a logging.Level, falling back
// to def for empty or unknown names. "TRACE" maps to DEBUG and "FATAL" to CRITICAL.
func ParseLevel(name string, def logging.Level) logging.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FATAL", "CRITICAL":
		return logging.CRITICAL
	case "ERROR":
		return logging.ERROR
	case "WARN", "WARNING":
		return logging.WARNING
	case "NOTICE":
		return logging.NOTICE
	case "INFO":
		return logging.INFO
	case "TRACE", "DEBUG":
		return logging.DEBUG
	default:
		return def
	}
}

// New returns a logger for module with its own backend writing to w, independent of
// the process default.
func New(module string, w io.Writer, level logging.Level) *logging.Logger {
	backend := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), plainFormat)
	return withBackend(module, backend, level)
}

// Discard returns a logger for module that drops every record.
func Discard(module string) *logging.Logger {
	return New(module, io.Discard, logging.CRITICAL)
}

// NewMemory returns a logger for module that keeps the last size records in memory.
func NewMemory(module string, size int) (*logging.Logger, *logging.MemoryBackend) {
	mem := logging.NewMemoryBackend(size)
	return withBackend(module, mem, logging.DEBUG), mem
}

// Records returns the messages held by mem at level or more severe, oldest first.
func Records(mem *logging.MemoryBackend, level logging.Level) []string {
	var out []string
	for n := mem.Head(); n != nil; n = n.Next() {
		if n.Record.Level <= level {
			out = append(out, n.Record.Message())
		}
	}
	return out
}

func withBackend(module string, backend logging.Backend, level logging.Level) *logging.Logger {
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	logger := logging.MustGetLogger(module)
	logger.SetBackend(leveled)
	return logger
}
