// Package syncmon keeps cached corpse loot in step with live containers.
//
// The host raises no event when a container's contents change, so each
// materialized corpse is polled every tick. Only the total item count is
// compared: swapping items of equal count goes unnoticed.
package syncmon

import (
	"log/slog"

	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

// Decision is the result of comparing a cached record with a container.
type Decision struct {
	// Update is set when the cached items must be replaced by Items.
	Update bool
	Items  []core.Item
	// Empty is set when the container holds nothing.
	Empty bool
}

// Reconcile compares cached items against a container snapshot.
func Reconcile(stored []core.Item, snap host.ContainerSnapshot) Decision {
	d := Decision{Empty: snap.Count == 0}
	if core.StackTotal(stored) != snap.Count {
		d.Update = true
		d.Items = core.CloneItems(snap.Items)
		if d.Items == nil {
			d.Items = []core.Item{}
		}
	}
	return d
}

// Monitor links one live container to its corpse record.
type Monitor struct {
	log       *slog.Logger
	store     *corpse.Store
	serial    uint64
	container host.Container

	indicatorHidden bool
	closed          bool
}

// New links container to the record with the given serial.
func New(serial uint64, container host.Container, store *corpse.Store, logger *slog.Logger) *Monitor {
	return &Monitor{log: logger, store: store, serial: serial, container: container}
}

func (m *Monitor) Serial() uint64 { return m.serial }

// Tick reconciles once. It returns false once the monitor is finished.
func (m *Monitor) Tick() bool {
	if m.closed {
		return false
	}
	if !m.container.Alive() {
		m.finish()
		return false
	}
	rec, ok := m.store.Lookup(m.serial)
	if !ok {
		m.log.Debug("Corpse record gone, removing container", "serial", m.serial)
		m.Close()
		return false
	}

	d := Reconcile(rec.Loot.Items, m.container.Snapshot())
	if d.Update {
		m.store.UpdateItems(m.serial, d.Items)
		m.log.Debug("Corpse contents changed", "serial", m.serial, "count", core.StackTotal(d.Items))
	}
	if d.Empty && !m.indicatorHidden {
		m.container.HideIndicator()
		m.indicatorHidden = true
	}
	return true
}

// Close destroys the container and finishes the monitor.
func (m *Monitor) Close() {
	if m.closed {
		return
	}
	m.container.Destroy()
	m.finish()
}

// finish runs once the container is gone. The record becomes spawnable
// again, or is retired if it was looted clean.
func (m *Monitor) finish() {
	m.closed = true
	rec, ok := m.store.Lookup(m.serial)
	if !ok {
		return
	}
	m.store.MarkSpawned(m.serial, false)
	if len(rec.Loot.Items) == 0 {
		m.store.RetireSerial(m.serial)
		m.log.Info("Looted corpse retired", "serial", m.serial)
	}
}

// Set runs every live monitor.
type Set struct {
	log      *slog.Logger
	store    *corpse.Store
	monitors []*Monitor
}

func NewSet(store *corpse.Store, logger *slog.Logger) *Set {
	return &Set{log: logger, store: store}
}

// Add starts monitoring container for serial.
func (s *Set) Add(serial uint64, container host.Container) *Monitor {
	m := New(serial, container, s.store, s.log)
	s.monitors = append(s.monitors, m)
	return m
}

// Tick runs every monitor once and drops the finished ones.
func (s *Set) Tick() {
	live := s.monitors[:0]
	for _, m := range s.monitors {
		if m.Tick() {
			live = append(live, m)
		}
	}
	clear(s.monitors[len(live):])
	s.monitors = live
}

// CloseAll destroys every monitored container.
func (s *Set) CloseAll() {
	for _, m := range s.monitors {
		m.Close()
	}
	s.monitors = nil
}

func (s *Set) Len() int { return len(s.monitors) }
