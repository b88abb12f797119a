// Package monitor periodically writes a human-readable status file with
// the lives counter and the corpse slot table.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ripmod/rip/internal/session"
	"github.com/ripmod/rip/pkg/core"
)

// FileName is the status file written into Dir.
const FileName = "status.txt"

// Source is the session state the monitor reads.
type Source interface {
	Do(ctx context.Context, fn func()) error
	Status() session.Status
	Corpses() []core.CorpseRecord
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session  Source
	Dir      string
	Interval time.Duration
	Logger   *slog.Logger
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	log       *slog.Logger
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, log: logger}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Path returns the status file path.
func (s *Service) Path() string {
	return filepath.Join(s.deps.Dir, FileName)
}

// Snapshot reads the session state on its tick.
func (s *Service) Snapshot(ctx context.Context) (session.Status, []core.CorpseRecord, error) {
	var st session.Status
	var corpses []core.CorpseRecord
	err := s.deps.Session.Do(ctx, func() {
		st = s.deps.Session.Status()
		corpses = s.deps.Session.Corpses()
	})
	return st, corpses, err
}

// WriteOnce refreshes the status file.
func (s *Service) WriteOnce(ctx context.Context) error {
	st, corpses, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.deps.Dir, 0o755); err != nil {
		return err
	}
	tmp := s.Path() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating status file: %w", err)
	}
	if err := Render(f, time.Now(), st, corpses); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path())
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()
	s.log.Debug("Starting status monitor", "path", s.Path(), "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.deps.Interval)
			if err := s.WriteOnce(ctx); err != nil {
				s.log.Error("Error writing status file", "error", err)
			}
			cancel()
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

// Render writes the status report: a JSON summary followed by the slot
// table.
func Render(w io.Writer, now time.Time, st session.Status, corpses []core.CorpseRecord) error {
	summary, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		summary = []byte(fmt.Sprintf(`{"error": %q}`, err))
	}
	if _, err := fmt.Fprintf(w, "# %s\n%s\n\n", now.UTC().Format(time.RFC3339), summary); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSERIAL\tREGION\tMAP\tCELL\tDROPPED\tITEMS\tSTACKS")
	for i := range corpses {
		c := &corpses[i]
		if c.Vacant() {
			fmt.Fprintf(tw, "%d\t-\t-\t-\t-\t-\t-\t-\n", i)
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d,%d\t%d\t%d\t%d\n",
			i, c.Serial, c.Region, c.Map, c.WorldPosX, c.WorldPosY, c.DropDate,
			len(c.Loot.Items), core.StackTotal(c.Loot.Items))
	}
	return tw.Flush()
}
