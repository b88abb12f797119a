package monitor

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/internal/session"
	"github.com/ripmod/rip/pkg/core"
)

type fakeSource struct {
	status  session.Status
	corpses []core.CorpseRecord
}

func (f *fakeSource) Do(_ context.Context, fn func()) error { fn(); return nil }
func (f *fakeSource) Status() session.Status { return f.status }
func (f *fakeSource) Corpses() []core.CorpseRecord { return f.corpses }

func source() *fakeSource {
	return &fakeSource{
		status: session.Status{Active: true, LivesLeft: 2, MaxCorpses: 2, Corpses: 1},
		corpses: []core.CorpseRecord{
			{Serial: 9, Region: 17, Map: 1000, WorldPosX: 200, WorldPosY: 150, DropDate: 42,
				Loot: &core.Loot{Items: []core.Item{{UID: 1, ShortName: "Gold", StackCount: 30}, {UID: 2, ShortName: "Dagger", StackCount: 1}}}},
			{Slot: 1},
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	src := source()
	require.NoError(t, Render(&buf, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), src.status, src.corpses))

	out := buf.String()
	assert.Contains(t, out, "# 2024-05-01T00:00:00Z")
	assert.Contains(t, out, `"livesLeft": 2`)
	assert.Contains(t, out, "SLOT")
	assert.Regexp(t, `0\s+9\s+17\s+1000\s+200,150\s+42\s+2\s+31`, out)
	assert.Regexp(t, `1\s+-\s+-`, out)
}

func TestWriteOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewService(Dependencies{Session: source(), Dir: dir})
	require.NoError(t, s.WriteOnce(context.Background()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"active": true`)
}

func TestStartStop(t *testing.T) {
	s := NewService(Dependencies{Session: source(), Dir: t.TempDir(), Interval: 10 * time.Millisecond})
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(s.Path())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
