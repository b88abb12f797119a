// Package snapshot implements storage.Backend as zstd-compressed snapshot
// files, keeping a short history per profile.
//
// Each file holds one JSON header line followed by the JSON save data, so
// listings only decode the header.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/pkg/core"
)

// FormatVersion is written into every header.
const FormatVersion = 1

const ext = ".snap.zst"

// Header is the first line of a snapshot file.
type Header struct {
	Version   int       `json:"version"`
	Profile   string    `json:"profile"`
	SavedAt   time.Time `json:"savedAt"`
	Corpses   int       `json:"corpses"`
	LivesLeft int       `json:"livesLeft"`
}

// Backend writes one file per Save under Dir/<profile>/.
type Backend struct {
	cfg config.SnapshotConfig
	now func() time.Time
}

// New creates a snapshot backend. Keep below 1 keeps a single snapshot.
func New(cfg config.SnapshotConfig) *Backend {
	if cfg.Keep < 1 {
		cfg.Keep = 1
	}
	return &Backend{cfg: cfg, now: time.Now}
}

func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Save(profile string, data core.SaveData) error {
	if err := storage.CheckProfile(profile); err != nil {
		return err
	}
	info := storage.Summarize(profile, b.now().UTC(), data)
	h := Header{
		Version:   FormatVersion,
		Profile:   profile,
		SavedAt:   info.SavedAt,
		Corpses:   info.Corpses,
		LivesLeft: info.LivesLeft,
	}
	path := filepath.Join(b.cfg.Dir, profile, strconv.FormatInt(h.SavedAt.UnixNano(), 10)+ext)
	if err := WriteFile(path, h, data); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return b.prune(profile)
}

// Load returns the newest snapshot of profile.
func (b *Backend) Load(profile string) (core.SaveData, error) {
	files, err := b.files(profile)
	if err != nil {
		return core.SaveData{}, err
	}
	_, data, err := ReadFile(files[len(files)-1])
	return data, err
}

func (b *Backend) Delete(profile string) error {
	if _, err := b.files(profile); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(b.cfg.Dir, profile))
}

func (b *Backend) Profiles() ([]storage.ProfileInfo, error) {
	dirs, err := os.ReadDir(b.cfg.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []storage.ProfileInfo
	for _, d := range dirs {
		if !d.IsDir() || storage.CheckProfile(d.Name()) != nil {
			continue
		}
		hist, err := b.History(d.Name())
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		h := hist[len(hist)-1]
		out = append(out, storage.ProfileInfo{Name: h.Profile, SavedAt: h.SavedAt, Corpses: h.Corpses, LivesLeft: h.LivesLeft})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// History returns the headers of every kept snapshot, oldest first.
func (b *Backend) History(profile string) ([]Header, error) {
	files, err := b.files(profile)
	if err != nil {
		return nil, err
	}
	out := make([]Header, 0, len(files))
	for _, f := range files {
		h, err := ReadHeader(f)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// files lists snapshot paths of profile, oldest first.
func (b *Backend) files(profile string) ([]string, error) {
	if err := storage.CheckProfile(profile); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(b.cfg.Dir, profile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	type stamped struct {
		path string
		ns   int64
	}
	var found []stamped
	for _, e := range entries {
		stem, ok := strings.CutSuffix(e.Name(), ext)
		if !ok || e.IsDir() {
			continue
		}
		ns, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			continue
		}
		found = append(found, stamped{filepath.Join(b.cfg.Dir, profile, e.Name()), ns})
	}
	if len(found) == 0 {
		return nil, storage.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ns < found[j].ns })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out, nil
}

func (b *Backend) prune(profile string) error {
	files, err := b.files(profile)
	if err != nil {
		return err
	}
	for len(files) > b.cfg.Keep {
		if err := os.Remove(files[0]); err != nil {
			return fmt.Errorf("pruning snapshot: %w", err)
		}
		files = files[1:]
	}
	return nil
}

// WriteFile writes a snapshot to path, creating parent directories.
func WriteFile(path string, h Header, data core.SaveData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(data); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

func openReader(path string) (*os.File, *zstd.Decoder, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	return f, dec, bufio.NewReaderSize(dec, 64*1024), nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("reading header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decoding header: %w", err)
	}
	if h.Version > FormatVersion {
		return h, fmt.Errorf("snapshot format %d is newer than supported %d", h.Version, FormatVersion)
	}
	return h, nil
}

// ReadHeader decodes only the header line of a snapshot.
func ReadHeader(path string) (Header, error) {
	f, dec, br, err := openReader(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	defer dec.Close()
	return readHeader(br)
}

// ReadFile decodes a whole snapshot.
func ReadFile(path string) (Header, core.SaveData, error) {
	var data core.SaveData
	f, dec, br, err := openReader(path)
	if err != nil {
		return Header{}, data, err
	}
	defer f.Close()
	defer dec.Close()

	h, err := readHeader(br)
	if err != nil {
		return h, data, err
	}
	if err := json.NewDecoder(br).Decode(&data); err != nil {
		return h, data, fmt.Errorf("json decode: %w", err)
	}
	return h, data, nil
}
