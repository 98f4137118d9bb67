package led

import (
	"fmt"
	"image"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// Drawer pushes frames to any periph display, treating the strip as an
// N x 1 image. Brightness scales every channel (255 = full).
type Drawer struct {
	mu         sync.Mutex
	drawer     display.Drawer
	port       io.Closer
	brightness uint8
	img        *image.NRGBA
}

func NewDrawer(d display.Drawer, brightness uint8) *Drawer {
	return &Drawer{
		drawer:     d,
		brightness: brightness,
		img:        image.NewNRGBA(d.Bounds()),
	}
}

// OpenNRZ opens a WS2812-style strip on the named SPI port ("" picks the
// first one available). freq is the LED data rate, usually 800kHz.
func OpenNRZ(dev string, count int, freq physic.Frequency, brightness uint8) (*Drawer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", dev, err)
	}
	d, err := NewNRZ(p, count, freq, brightness)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	d.port = p
	return d, nil
}

// NewNRZ drives an NRZ LED strip over an already opened SPI port.
func NewNRZ(p spi.Port, count int, freq physic.Frequency, brightness uint8) (*Drawer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	opts := nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      freq,
	}
	d, err := nrzled.NewSPI(p, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return NewDrawer(d, brightness), nil
}

// OpenConsole renders the strip as colored blocks on the terminal.
func OpenConsole(count int, brightness uint8) *Drawer {
	return NewDrawer(screen.New(count), brightness)
}

func (r *Drawer) Write(rgb []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.img.Bounds()
	n := b.Dx()
	if len(rgb) < n*3 {
		return fmt.Errorf("rgb length %d does not cover %d pixels", len(rgb), n)
	}
	for i := 0; i < n; i++ {
		off := r.img.PixOffset(b.Min.X+i, b.Min.Y)
		r.img.Pix[off+0] = r.scale(rgb[i*3+0])
		r.img.Pix[off+1] = r.scale(rgb[i*3+1])
		r.img.Pix[off+2] = r.scale(rgb[i*3+2])
		r.img.Pix[off+3] = 0xFF
	}
	return r.drawer.Draw(b, r.img, b.Min)
}

func (r *Drawer) scale(v byte) byte {
	if r.brightness == 0xFF {
		return v
	}
	return byte(uint16(v) * uint16(r.brightness) / 0xFF)
}

func (r *Drawer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.drawer.Halt()
	if r.port != nil {
		if cerr := r.port.Close(); err == nil {
			err = cerr
		}
		r.port = nil
	}
	return err
}

func (r *Drawer) String() string {
	return r.drawer.String()
}
