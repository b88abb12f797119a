// Command ripsim runs the death subsystem against a simulated engine and
// feeds it host commands read from stdin, one per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ripmod/rip/internal/app"
	"github.com/ripmod/rip/internal/host/hosttest"
	"github.com/ripmod/rip/pkg/core"
)

// set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const help = `host commands are passed through, e.g.:
  forcedeath | disablerip | enablerip | nextdeathpassthrough
  checkforcorpse [region map] | :STATUS: | :SAVE: [profile] | :LOAD: [profile]
simulator commands:
  move <region> <map>   enter another area
  gold <amount>         set carried gold
  help | quit
`

func main() {
	fs := flag.NewFlagSet("ripsim", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory holding rip.cfg.json")
	tick := fs.Duration("tick", 16*time.Millisecond, "frame interval")
	watch := fs.Bool("watch", true, "re-apply settings when the config file changes")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configDir, *tick, *watch, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configDir string, tick time.Duration, watch bool, in io.Reader, out io.Writer) error {
	eng := hosttest.NewEngine()
	host := eng.Host()
	// distance-based travel time from config
	host.Travel = nil

	a, err := app.Start(ctx, app.Options{
		Engine:    host,
		ConfigDir: configDir,
		Version:   Version + "+" + BuildDate,
		Watch:     watch,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan struct{})
	go func() {
		defer close(frames)
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.Tick()
			}
		}
	}()

	loopErr := repl(ctx, a, eng, in, out)
	cancel()
	<-frames
	return errors.Join(loopErr, a.Close(context.Background()))
}

func repl(ctx context.Context, a *app.App, eng *hosttest.Engine, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" {
				return nil
			}
			fmt.Fprintln(out, handle(a, eng, fields))
		}
	}
}

// handle runs one input line. Simulator commands mutate the fake engine on
// the frame goroutine, like every other engine access.
func handle(a *app.App, eng *hosttest.Engine, fields []string) string {
	switch fields[0] {
	case "help":
		return help
	case "move":
		if len(fields) != 3 {
			return "usage: move <region> <map>"
		}
		region, err1 := strconv.Atoi(fields[1])
		mapID, err2 := strconv.Atoi(fields[2])
		if err := errors.Join(err1, err2); err != nil {
			return err.Error()
		}
		a.Session.Post(func() {
			eng.World.Area = core.Area{Region: region, MapID: mapID}
		})
		return "ok"
	case "gold":
		if len(fields) != 2 {
			return "usage: gold <amount>"
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return err.Error()
		}
		a.Session.Post(func() { eng.Player.GoldPieces = n })
		return "ok"
	}
	return a.Call(fields[0], fields[1:]...)
}
