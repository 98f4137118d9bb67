package led

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/edged/internal/ledcolor"
)

type failingDriver struct{ writes int }

func (d *failingDriver) Write(rgb []byte) error {
	d.writes++
	return errors.New("bus fault")
}
func (d *failingDriver) Close() error { return nil }

func colors(vals ...interface{}) []ledcolor.Color {
	out := make([]ledcolor.Color, len(vals))
	for i, v := range vals {
		if c, ok := v.(uint32); ok {
			out[i] = ledcolor.NewColor(c)
		}
	}
	return out
}

func TestNewStripStartsBlank(t *testing.T) {
	sim := NewSim()
	s, err := NewStrip(6, sim)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Len())
	assert.Equal(t, ledcolor.Zero(6), s.Get())
	assert.Equal(t, 1, sim.Frames(), "reset pushed on start")
	assert.Equal(t, make([]byte, 18), sim.Last())
}

func TestStripSetSaveAndShow(t *testing.T) {
	sim := NewSim()
	s, err := NewStrip(3, sim)
	require.NoError(t, err)

	got, err := s.Set(colors(uint32(0x112233), nil, uint32(0xFF0000)), true, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x112233), got[0].Packed())
	assert.Equal(t, uint32(0), got[1].Packed(), "unset entries are left alone")
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0, 0, 0, 0xFF, 0, 0}, sim.Last())
}

func TestStripSaveWithoutShow(t *testing.T) {
	sim := NewSim()
	s, err := NewStrip(2, sim)
	require.NoError(t, err)
	frames := sim.Frames()

	got, err := s.Set(colors(uint32(0x0000FF), nil), true, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0000FF), got[0].Packed())
	assert.Equal(t, frames, sim.Frames(), "nothing shown, nothing pushed")
	assert.Equal(t, make([]byte, 6), s.Frame())
}

func TestStripShowWithoutSave(t *testing.T) {
	sim := NewSim()
	s, err := NewStrip(2, sim)
	require.NoError(t, err)

	got, err := s.Set(colors(nil, uint32(0x00FF00)), false, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got[1].Packed())
	assert.Equal(t, []byte{0, 0, 0, 0, 0xFF, 0}, sim.Last())
}

func TestStripInsufficientChannels(t *testing.T) {
	s, err := NewStrip(4, NewSim())
	require.NoError(t, err)

	_, err = s.Set(colors(uint32(1), uint32(2)), true, true)
	assert.ErrorIs(t, err, ErrInsufficientChannels)
	assert.Equal(t, ledcolor.Zero(4), s.Get())
}

func TestStripExtraColorsIgnored(t *testing.T) {
	s, err := NewStrip(1, NewSim())
	require.NoError(t, err)

	got, err := s.Set(colors(uint32(7), uint32(8), uint32(9)), true, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStripReset(t *testing.T) {
	sim := NewSim()
	s, err := NewStrip(2, sim)
	require.NoError(t, err)
	_, err = s.Set(colors(uint32(0xABCDEF), uint32(0x123456)), true, true)
	require.NoError(t, err)

	got, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, ledcolor.Zero(2), got)
	assert.Equal(t, make([]byte, 6), sim.Last())
}

func TestStripDriverFailure(t *testing.T) {
	_, err := NewStrip(2, &failingDriver{})
	assert.Error(t, err)
}

type flakyDriver struct {
	Sim
	fail bool
}

func (d *flakyDriver) Write(rgb []byte) error {
	if d.fail {
		return errors.New("bus fault")
	}
	return d.Sim.Write(rgb)
}

func TestStripDriverFailureCommitsNothing(t *testing.T) {
	drv := &flakyDriver{}
	s, err := NewStrip(2, drv)
	require.NoError(t, err)
	_, err = s.Set(colors(uint32(0x010203), uint32(0x040506)), true, true)
	require.NoError(t, err)
	saved, frame := s.Get(), s.Frame()

	drv.fail = true
	_, err = s.Set(colors(uint32(0xFFFFFF), uint32(0xFFFFFF)), true, true)
	assert.Error(t, err)
	assert.Equal(t, saved, s.Get())
	assert.Equal(t, frame, s.Frame())

	_, err = s.Reset()
	assert.Error(t, err)
	assert.Equal(t, saved, s.Get())
	assert.Equal(t, frame, s.Frame())
}

func TestFanoutJoinsErrors(t *testing.T) {
	a, b := NewSim(), &failingDriver{}
	f := Fanout{a, b}

	err := f.Write([]byte{1, 2, 3})
	assert.Error(t, err)
	assert.Equal(t, 1, a.Frames())
	assert.Equal(t, 1, b.writes)
	assert.NoError(t, f.Close())
}
