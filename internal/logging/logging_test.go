package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		desc    string
		logsDir string
		want    string
	}{
		{"basic path", "riplogs", filepath.Join("riplogs", "rip.20260212_213836.log")},
		{"relative path with dot", "./riplogs", filepath.Join(".", "riplogs", "rip.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log", "rip"), filepath.Join("/var", "log", "rip", "rip.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "rip", sessionStart))
		})
	}
}
