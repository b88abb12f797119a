// Package storage persists session save data under named profiles.
package storage

import (
	"errors"
	"regexp"
	"time"

	"github.com/ripmod/rip/pkg/core"
)

var (
	// ErrNotFound is returned by Load for a profile that was never saved.
	ErrNotFound = errors.New("profile not found")
	// ErrBadProfile is returned for profile names that are not a single
	// path-safe token.
	ErrBadProfile = errors.New("invalid profile name")
)

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	Init() error
	Close() error

	// Save replaces the stored state of profile.
	Save(profile string, data core.SaveData) error
	// Load returns ErrNotFound for unknown profiles.
	Load(profile string) (core.SaveData, error)
	Delete(profile string) error
	// Profiles lists stored profiles sorted by name.
	Profiles() ([]ProfileInfo, error)
}

// ProfileInfo summarizes one stored profile.
type ProfileInfo struct {
	Name      string    `json:"name"`
	SavedAt   time.Time `json:"savedAt"`
	Corpses   int       `json:"corpses"`
	LivesLeft int       `json:"livesLeft"`
}

// Summarize builds the listing entry for data.
func Summarize(name string, savedAt time.Time, data core.SaveData) ProfileInfo {
	info := ProfileInfo{Name: name, SavedAt: savedAt, LivesLeft: data.LivesLeft}
	for i := range data.Corpses {
		if !data.Corpses[i].Vacant() {
			info.Corpses++
		}
	}
	return info
}

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,126}$`)

// CheckProfile validates a profile name.
func CheckProfile(name string) error {
	if !profilePattern.MatchString(name) {
		return ErrBadProfile
	}
	return nil
}
