// Package logtag attaches the canonical subsystem tag to loggers so
// every component's entries carry a stable "sys" field.
package logtag

import (
	"strings"

	"pkt.systems/pslog"
)

// Key is the canonical key for subsystem tags.
const Key = pslog.TrustedString("sys")

// Sys returns logger with a subsystem tag, falling back to a noop logger
// when none was supplied.
func Sys(logger pslog.Logger, subsystem string) pslog.Logger {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	subsystem = strings.Trim(subsystem, ". ")
	if subsystem == "" {
		return logger
	}
	return logger.With(Key, subsystem)
}
