package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/pkg/core"
)

func TestRoute(t *testing.T) {
	ls, err := Route(core.MapPixel{X: 0, Y: 0}, core.MapPixel{X: 3, Y: 4}, core.MapPixel{X: 3, Y: 10})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, ls.Length(), 1e-9)

	_, err = Route(core.MapPixel{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrShortRoute)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(core.MapPixel{X: 1, Y: 1}, core.MapPixel{X: 4, Y: 5}), 1e-9)
	assert.Zero(t, Distance(core.MapPixel{X: 2, Y: 2}, core.MapPixel{X: 2, Y: 2}))
}

func TestPixelTimer(t *testing.T) {
	from := core.MapPixel{X: 100, Y: 100}
	to := core.MapPixel{X: 103, Y: 104}
	assert.Equal(t, 300, PixelTimer{}.Minutes(from, to))
	assert.Equal(t, 10, PixelTimer{MinutesPerPixel: 2}.Minutes(from, to))
	assert.Equal(t, 0, PixelTimer{}.Minutes(from, from))
}
