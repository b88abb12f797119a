// Package memory implements storage.Backend as an in-memory map mirrored
// to one JSON file per profile.
package memory

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/internal/storage/schema"
	"github.com/ripmod/rip/pkg/core"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

type entry struct {
	data    core.SaveData
	savedAt time.Time
}

// Backend keeps every profile in memory. With an OutputDir set, each Save
// is written through to disk and Init loads what is already there.
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	mu       sync.RWMutex
	profiles map[string]entry
}

// New creates a memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		now:      time.Now,
		profiles: make(map[string]entry),
	}
}

// Init loads every profile file from the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	files, err := os.ReadDir(b.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("reading output directory: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range files {
		name, ok := profileOf(f.Name())
		if !ok || f.IsDir() {
			continue
		}
		raw, err := readFile(filepath.Join(b.cfg.OutputDir, f.Name()))
		if err != nil {
			return err
		}
		data, err := schema.Decode(raw)
		if err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		savedAt := b.now()
		if info, err := f.Info(); err == nil {
			savedAt = info.ModTime()
		}
		b.profiles[name] = entry{data: data, savedAt: savedAt}
	}
	return nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Save(profile string, data core.SaveData) error {
	if err := storage.CheckProfile(profile); err != nil {
		return err
	}
	data = data.Clone()
	if b.cfg.OutputDir != "" {
		if err := b.writeProfile(profile, data); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.profiles[profile] = entry{data: data, savedAt: b.now()}
	b.mu.Unlock()
	return nil
}

func (b *Backend) Load(profile string) (core.SaveData, error) {
	if err := storage.CheckProfile(profile); err != nil {
		return core.SaveData{}, err
	}
	b.mu.RLock()
	e, ok := b.profiles[profile]
	b.mu.RUnlock()
	if !ok {
		return core.SaveData{}, storage.ErrNotFound
	}
	return e.data.Clone(), nil
}

func (b *Backend) Delete(profile string) error {
	if err := storage.CheckProfile(profile); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.profiles[profile]; !ok {
		return storage.ErrNotFound
	}
	delete(b.profiles, profile)
	if b.cfg.OutputDir != "" {
		for _, ext := range []string{extJSON, extGzip} {
			err := os.Remove(filepath.Join(b.cfg.OutputDir, profile+ext))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("removing profile file: %w", err)
			}
		}
	}
	return nil
}

func (b *Backend) Profiles() ([]storage.ProfileInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]storage.ProfileInfo, 0, len(b.profiles))
	for name, e := range b.profiles {
		out = append(out, storage.Summarize(name, e.savedAt, e.data))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Export returns the stored profile as indented JSON.
func (b *Backend) Export(profile string) ([]byte, error) {
	data, err := b.Load(profile)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// Import validates raw save JSON and stores it under profile.
func (b *Backend) Import(profile string, raw []byte) error {
	data, err := schema.Decode(raw)
	if err != nil {
		return err
	}
	return b.Save(profile, data)
}

// Path returns the file a profile is written to.
func (b *Backend) Path(profile string) string {
	ext := extJSON
	if b.cfg.CompressOutput {
		ext = extGzip
	}
	return filepath.Join(b.cfg.OutputDir, profile+ext)
}

func (b *Backend) writeProfile(profile string, data core.SaveData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", profile, err)
	}
	if b.cfg.CompressOutput {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(raw); err != nil {
			return fmt.Errorf("compressing profile %s: %w", profile, err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("compressing profile %s: %w", profile, err)
		}
		raw = buf.Bytes()
	}

	path := b.Path(profile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing profile %s: %w", profile, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing profile %s: %w", profile, err)
	}
	return nil
}

func profileOf(file string) (string, bool) {
	for _, ext := range []string{extGzip, extJSON} {
		if name, ok := strings.CutSuffix(file, ext); ok {
			return name, storage.CheckProfile(name) == nil
		}
	}
	return "", false
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}
