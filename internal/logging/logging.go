// Package logging builds the process logger and its adapters.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a per-session log file path.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
