package relay

import (
	"avaneesh/osc-relay/pkg/internal/logger"
)

// Logger is the logging interface accepted by the constructors
type Logger = logger.Logger

// NewLogger returns a stdout logger whose lines are tagged with tool.
// level normally comes from config.Common.LogLevel.
func NewLogger(tool string, level logger.Level) Logger {
	return logger.NewDefaultLogger(level).WithField("tool", tool)
}
