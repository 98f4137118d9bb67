package led

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestNRZ_Write(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := NewNRZ(spitest.NewRecordRaw(&buf), 2, 800*physic.KiloHertz, 255)
	require.NoError(t, err)
	if got, expected := d.String(), "nrzled{recordraw}"; got != expected {
		t.Fatalf("\nGot:  %s\nWant: %s\n", got, expected)
	}

	require.NoError(t, d.Write([]byte{0xFF, 0, 0, 0, 0xFF, 0}))
	assert.NotZero(t, buf.Len(), "encoded stream reaches the port")
}

func TestNRZ_ShortFrame(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := NewNRZ(spitest.NewRecordRaw(&buf), 3, 800*physic.KiloHertz, 255)
	require.NoError(t, err)
	assert.Error(t, d.Write([]byte{1, 2, 3}))
}

func TestNRZ_InvalidCount(t *testing.T) {
	_, err := NewNRZ(spitest.NewRecordRaw(&bytes.Buffer{}), 0, 800*physic.KiloHertz, 255)
	assert.Error(t, err)
}

func TestDrawerBrightness(t *testing.T) {
	d := &Drawer{brightness: 128}
	assert.Equal(t, byte(128), d.scale(255))
	assert.Equal(t, byte(0), d.scale(0))

	d.brightness = 255
	assert.Equal(t, byte(200), d.scale(200))
}
