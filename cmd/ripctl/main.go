// Command ripctl inspects and edits persisted save state through any
// storage backend.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/logging"
	"github.com/ripmod/rip/internal/monitor"
	"github.com/ripmod/rip/internal/session"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/internal/storage/factory"
	"github.com/ripmod/rip/internal/storage/schema"
	"github.com/ripmod/rip/internal/storage/snapshot"
	"github.com/ripmod/rip/pkg/core"
)

const usage = `usage: ripctl <command> [flags]

commands:
  profiles   list stored profiles
  inspect    print a profile's lives and corpse slots
  export     write a profile as JSON
  import     validate and store a JSON save
  resize     change the corpse slot count, keeping the newest corpses
  cull       vacate corpses older than -days at game date -now
  delete     remove a profile
  history    list kept snapshots (snapshot backend only)

common flags: -config dir, -type backend, -profile name, -v
`

// errUsage marks errors caused by a bad invocation.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type command func(e *env, args []string) error

var commands = map[string]command{
	"profiles": profilesCmd,
	"inspect":  inspectCmd,
	"export":   exportCmd,
	"import":   importCmd,
	"resize":   resizeCmd,
	"cull":     cullCmd,
	"delete":   deleteCmd,
	"history":  historyCmd,
}

// env carries the output streams and, after open, the backend.
type env struct {
	stdout io.Writer
	stderr io.Writer
	fs     *flag.FlagSet

	configDir *string
	typ       *string
	profileF  *string
	verbose   *bool

	backend storage.Backend
	profile string
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	e := &env{stdout: stdout, stderr: stderr, fs: flag.NewFlagSet(args[0], flag.ContinueOnError)}
	e.fs.SetOutput(stderr)
	e.configDir = e.fs.String("config", ".", "directory containing "+config.FileName)
	e.typ = e.fs.String("type", "", "storage backend override (memory, sqlite, postgres, snapshot)")
	e.profileF = e.fs.String("profile", "", "profile name (defaults to storage.profile)")
	e.verbose = e.fs.Bool("v", false, "verbose storage logging")
	defer e.close()

	err := cmd(e, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "error:", err)
		return 2
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

// open parses the flags and opens the configured backend.
func (e *env) open(args []string) error {
	if err := e.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if e.fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, e.fs.Args())
	}

	viper.Reset()
	if err := config.Load(*e.configDir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	cfg := config.GetStorageConfig()
	if *e.typ != "" {
		cfg.Type = *e.typ
	}
	e.profile = cfg.Profile
	if *e.profileF != "" {
		e.profile = *e.profileF
	}

	level := "warn"
	if *e.verbose {
		level = "debug"
	}
	log := logging.NewZerolog(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: e.stderr, NoColor: true}), level)

	b := factory.New(cfg, log)
	if err := b.Init(); err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Type, err)
	}
	e.backend = b
	return nil
}

func (e *env) close() {
	if e.backend == nil {
		return
	}
	if err := e.backend.Close(); err != nil {
		fmt.Fprintln(e.stderr, "closing storage:", err)
	}
}

func profilesCmd(e *env, args []string) error {
	if err := e.open(args); err != nil {
		return err
	}
	list, err := e.backend.Profiles()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tSAVED\tCORPSES\tLIVES")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.Name, p.SavedAt.UTC().Format(time.RFC3339), p.Corpses, p.LivesLeft)
	}
	return tw.Flush()
}

func statusOf(data core.SaveData) session.Status {
	st := session.Status{
		LivesLeft:  data.LivesLeft,
		MaxCorpses: len(data.Corpses),
		Rentals:    len(data.Rentals),
	}
	for i := range data.Corpses {
		if !data.Corpses[i].Vacant() {
			st.Corpses++
		}
	}
	return st
}

func inspectCmd(e *env, args []string) error {
	if err := e.open(args); err != nil {
		return err
	}
	data, err := e.backend.Load(e.profile)
	if err != nil {
		return fmt.Errorf("loading %s: %w", e.profile, err)
	}
	return monitor.Render(e.stdout, time.Now(), statusOf(data), data.Corpses)
}

func exportCmd(e *env, args []string) error {
	out := e.fs.String("out", "", "output file (default stdout)")
	if err := e.open(args); err != nil {
		return err
	}
	data, err := e.backend.Load(e.profile)
	if err != nil {
		return fmt.Errorf("loading %s: %w", e.profile, err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if *out == "" {
		_, err = e.stdout.Write(raw)
		return err
	}
	return os.WriteFile(*out, raw, 0o644)
}

func importCmd(e *env, args []string) error {
	in := e.fs.String("in", "", "JSON save file to import (required)")
	if err := e.open(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("%w: missing -in", errUsage)
	}
	raw, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	data, err := schema.Decode(raw)
	if err != nil {
		return err
	}
	if err := e.backend.Save(e.profile, data); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "imported %s: %d corpse slots, %d lives\n", e.profile, len(data.Corpses), data.LivesLeft)
	return nil
}

// editCorpses loads the profile into a corpse store, applies fn and saves.
func (e *env) editCorpses(fn func(*corpse.Store)) (core.SaveData, error) {
	data, err := e.backend.Load(e.profile)
	if err != nil {
		return data, fmt.Errorf("loading %s: %w", e.profile, err)
	}
	store := corpse.New(len(data.Corpses), corpse.Rot{}, nil)
	store.Load(data.Corpses)
	fn(store)
	data.Corpses = store.Records()
	return data, e.backend.Save(e.profile, data)
}

func resizeCmd(e *env, args []string) error {
	slots := e.fs.Int("max", -1, "new corpse slot count (required)")
	if err := e.open(args); err != nil {
		return err
	}
	if *slots < 0 {
		return fmt.Errorf("%w: missing -max", errUsage)
	}
	data, err := e.editCorpses(func(s *corpse.Store) { s.Resize(*slots, 0) })
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "resized %s to %d slots\n", e.profile, len(data.Corpses))
	return nil
}

func cullCmd(e *env, args []string) error {
	now := e.fs.Int("now", -1, "current game date in stocked-date units (required)")
	days := e.fs.Int("days", 30, "days before a corpse rots")
	if err := e.open(args); err != nil {
		return err
	}
	if *now < 0 {
		return fmt.Errorf("%w: missing -now", errUsage)
	}
	var rotted int
	_, err := e.editCorpses(func(s *corpse.Store) { rotted = len(s.CullRotted(*now, *days)) })
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "culled %d corpses from %s\n", rotted, e.profile)
	return nil
}

func deleteCmd(e *env, args []string) error {
	if err := e.open(args); err != nil {
		return err
	}
	if err := e.backend.Delete(e.profile); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "deleted %s\n", e.profile)
	return nil
}

// historian is implemented by backends that keep old saves.
type historian interface {
	History(profile string) ([]snapshot.Header, error)
}

func historyCmd(e *env, args []string) error {
	if err := e.open(args); err != nil {
		return err
	}
	h, ok := e.backend.(historian)
	if !ok {
		return fmt.Errorf("%w: history needs the snapshot backend", errUsage)
	}
	list, err := h.History(e.profile)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAVED\tCORPSES\tLIVES")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", s.SavedAt.Format(time.RFC3339Nano), s.Corpses, s.LivesLeft)
	}
	return tw.Flush()
}
