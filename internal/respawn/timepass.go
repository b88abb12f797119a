package respawn

import (
	"log/slog"

	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

const (
	secondsPerHour = 3600
	secondsPerDay  = 86400
)

// TimeSettings configures how long the character stays unconscious.
type TimeSettings struct {
	Mode         core.UnconsciousMode
	FixedSeconds int
	MaxDays      int
}

// TimeAdvancer moves the game clock forward for the unconscious period.
type TimeAdvancer struct {
	log    *slog.Logger
	clock  host.GameClock
	travel host.TravelTimer
	cfg    TimeSettings
}

func NewTimeAdvancer(clock host.GameClock, travel host.TravelTimer, cfg TimeSettings, logger *slog.Logger) *TimeAdvancer {
	return &TimeAdvancer{log: logger, clock: clock, travel: travel, cfg: cfg}
}

// SetSettings replaces the time settings.
func (t *TimeAdvancer) SetSettings(cfg TimeSettings) { t.cfg = cfg }

// Duration returns the seconds to pass for a trip from one cell to another.
func (t *TimeAdvancer) Duration(from, to core.MapPixel) int {
	if t.cfg.Mode == core.UnconsciousFixed {
		return max(t.cfg.FixedSeconds, 0)
	}
	secs := t.travel.Minutes(from, to) * 60
	upper := max(t.cfg.MaxDays*secondsPerDay, secondsPerHour)
	return min(max(secs, secondsPerHour), upper)
}

// PassTime advances the clock and returns the seconds passed.
func (t *TimeAdvancer) PassTime(from, to core.MapPixel) int {
	secs := t.Duration(from, to)
	if secs > 0 {
		t.clock.RaiseTime(secs)
	}
	t.log.Debug("Passed unconscious time", "seconds", secs, "mode", t.cfg.Mode)
	return secs
}
