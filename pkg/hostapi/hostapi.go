// Package hostapi is the string command surface exposed to the host engine
// and to other mods. Every call returns a JSON array whose first element is
// "ok" or "error".
package hostapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ripmod/rip/internal/dispatcher"
)

// Commands understood by the death subsystem.
const (
	CmdForceDeath      = "forcedeath"
	CmdDisable         = "disablerip"
	CmdEnable          = "enablerip"
	CmdNextPassthrough = "nextdeathpassthrough"
	CmdCheckForCorpse  = "checkforcorpse"
	CmdStatus          = ":STATUS:"
	CmdSave            = ":SAVE:"
	CmdLoad            = ":LOAD:"
	CmdTimestamp       = ":TIMESTAMP:"
	CmdVersion         = ":VERSION:"
)

// API answers host calls through a dispatcher.
type API struct {
	dispatcher *dispatcher.Dispatcher
	version    string
	now        func() time.Time
}

// New creates an API over d.
func New(d *dispatcher.Dispatcher, version string) *API {
	return &API{dispatcher: d, version: version, now: time.Now}
}

// Version returns the version string reported to the host.
func (a *API) Version() string { return a.version }

// Call runs command with args. A command of the form "name|payload" with
// no handler for the full string is dispatched as name with the full
// string as its only argument.
func (a *API) Call(command string, args ...string) string {
	switch command {
	case CmdTimestamp:
		return Format(strconv.FormatInt(a.now().UTC().UnixNano(), 10), nil)
	case CmdVersion:
		return Format(a.version, nil)
	}
	if a.dispatcher == nil {
		return Format(nil, fmt.Errorf("%s: %w", command, dispatcher.ErrUnknownCommand))
	}

	name := command
	if !a.dispatcher.HasHandler(command) {
		if prefix, _, ok := strings.Cut(command, "|"); ok && a.dispatcher.HasHandler(prefix) {
			name = prefix
			args = []string{command}
		}
	}
	result, err := a.dispatcher.Dispatch(dispatcher.Event{
		Command:   name,
		Args:      args,
		Timestamp: a.now(),
	})
	return Format(result, err)
}

// Format frames a handler result for the host.
func Format(result any, err error) string {
	if err != nil {
		return `["error", ` + quote(err.Error()) + `]`
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return `["ok", ` + quote(s) + `]`
	}
	data, err := json.Marshal(result)
	if err != nil {
		return `["error", ` + quote("encoding result: "+err.Error()) + `]`
	}
	return `["ok", ` + string(data) + `]`
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
