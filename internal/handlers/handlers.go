// Package handlers binds host commands to session operations.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ripmod/rip/internal/death"
	"github.com/ripmod/rip/internal/dispatcher"
	"github.com/ripmod/rip/internal/session"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/pkg/core"
	"github.com/ripmod/rip/pkg/hostapi"
)

// ErrBadArgs is returned for malformed command arguments.
var ErrBadArgs = errors.New("bad arguments")

// Session is the slice of the session the commands drive.
type Session interface {
	Do(ctx context.Context, fn func()) error
	ForceDeath() death.Outcome
	Enable()
	Disable()
	Active() bool
	PassNextDeath()
	CheckForCorpses(area *core.Area)
	Status() session.Status
	SaveData() core.SaveData
	Restore(data core.SaveData)
}

// Dependencies holds everything the handlers need. Backend and Flush are
// optional.
type Dependencies struct {
	Session Session
	Backend storage.Backend
	Profile string
	// Flush is called after every save, e.g. to push buffered telemetry.
	Flush   func(context.Context) error
	Timeout time.Duration
	Logger  *slog.Logger
}

// DeathResult is the reply to forcedeath.
type DeathResult struct {
	Permanent bool   `json:"permanent"`
	Reason    string `json:"reason,omitempty"`
	Respawn   string `json:"respawn,omitempty"`
	LivesLeft int    `json:"livesLeft"`
}

// Service implements the command handlers.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

func NewService(deps Dependencies) *Service {
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, log: logger}
}

// Register adds every command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(hostapi.CmdForceDeath, s.forceDeath, dispatcher.Logged())
	d.Register(hostapi.CmdDisable, s.disable, dispatcher.Logged())
	d.Register(hostapi.CmdEnable, s.enable, dispatcher.Logged())
	d.Register(hostapi.CmdNextPassthrough, s.passthrough, dispatcher.Logged())
	d.Register(hostapi.CmdCheckForCorpse, s.checkForCorpse, dispatcher.Logged())
	d.Register(hostapi.CmdStatus, s.status)
	if s.deps.Backend != nil {
		d.Register(hostapi.CmdSave, s.save, dispatcher.Buffered(4), dispatcher.Logged())
		d.Register(hostapi.CmdLoad, s.load, dispatcher.Logged())
	}
}

// onSession runs fn on the session's tick and waits for it.
func (s *Service) onSession(fn func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.Timeout)
	defer cancel()
	return s.deps.Session.Do(ctx, fn)
}

func (s *Service) forceDeath(dispatcher.Event) (any, error) {
	var out death.Outcome
	if err := s.onSession(func() { out = s.deps.Session.ForceDeath() }); err != nil {
		return nil, err
	}
	res := DeathResult{Permanent: out.Permanent, Reason: string(out.Reason), LivesLeft: out.LivesLeft}
	if !out.Permanent {
		res.Respawn = out.Respawn.String()
	}
	return res, nil
}

func (s *Service) disable(dispatcher.Event) (any, error) {
	return nil, s.onSession(s.deps.Session.Disable)
}

func (s *Service) enable(dispatcher.Event) (any, error) {
	return nil, s.onSession(s.deps.Session.Enable)
}

func (s *Service) passthrough(dispatcher.Event) (any, error) {
	return nil, s.onSession(s.deps.Session.PassNextDeath)
}

// checkForCorpse takes no arguments for the current area, or a region and
// map id. Arguments may also arrive pipe-joined in the first argument.
func (s *Service) checkForCorpse(e dispatcher.Event) (any, error) {
	area, err := parseArea(e.Args)
	if err != nil {
		return nil, err
	}
	var active bool
	err = s.onSession(func() {
		if active = s.deps.Session.Active(); active {
			s.deps.Session.CheckForCorpses(area)
		}
	})
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, session.ErrInactive
	}
	return nil, nil
}

func parseArea(args []string) (*core.Area, error) {
	if len(args) == 1 && strings.Contains(args[0], "|") {
		args = strings.Split(args[0], "|")[1:]
	}
	switch len(args) {
	case 0:
		return nil, nil
	case 2:
		region, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: region %q", ErrBadArgs, args[0])
		}
		mapID, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: map %q", ErrBadArgs, args[1])
		}
		return &core.Area{Region: region, MapID: mapID}, nil
	default:
		return nil, fmt.Errorf("%w: want none or region and map, got %d", ErrBadArgs, len(args))
	}
}

func (s *Service) status(dispatcher.Event) (any, error) {
	var st session.Status
	if err := s.onSession(func() { st = s.deps.Session.Status() }); err != nil {
		return nil, err
	}
	return st, nil
}

// save captures state on the tick and persists it off the tick.
func (s *Service) save(e dispatcher.Event) (any, error) {
	profile := s.profile(e)
	var data core.SaveData
	if err := s.onSession(func() { data = s.deps.Session.SaveData() }); err != nil {
		return nil, err
	}
	if err := s.deps.Backend.Save(profile, data); err != nil {
		return nil, err
	}
	s.log.Info("Saved session", "profile", profile, "livesLeft", data.LivesLeft)
	if s.deps.Flush != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.deps.Timeout)
		defer cancel()
		if err := s.deps.Flush(ctx); err != nil {
			s.log.Warn("Flush after save failed", "error", err)
		}
	}
	return nil, nil
}

func (s *Service) load(e dispatcher.Event) (any, error) {
	profile := s.profile(e)
	data, err := s.deps.Backend.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", profile, err)
	}
	if err := s.onSession(func() { s.deps.Session.Restore(data) }); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Service) profile(e dispatcher.Event) string {
	if p := strings.TrimSpace(e.Arg(0)); p != "" {
		return p
	}
	return s.deps.Profile
}
