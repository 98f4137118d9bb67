package led

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/edged/internal/ledcolor"
)

var ErrInsufficientChannels = errors.New("insufficient colors specified")

// Strip holds the saved color of every channel and the frame currently
// visible on the driver. The two diverge when a color is saved without
// being shown.
type Strip struct {
	mu     sync.Mutex
	count  int
	saved  []ledcolor.Color
	frame  []byte
	driver Driver
}

// NewStrip creates a strip of count channels and blanks the driver.
func NewStrip(count int, driver Driver) (*Strip, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	s := &Strip{
		count:  count,
		saved:  ledcolor.Zero(count),
		frame:  make([]byte, count*3),
		driver: driver,
	}
	if _, err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Strip) Len() int { return s.count }

// Set applies colors[0:N]. Unset entries are skipped. save records the
// value as the channel's logical state, show makes it visible. Nothing is
// committed when the driver rejects the frame.
func (s *Strip) Set(colors []ledcolor.Color, save, show bool) ([]ledcolor.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(colors) < s.count {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientChannels, len(colors), s.count)
	}
	if show {
		frame := append([]byte(nil), s.frame...)
		for i := 0; i < s.count; i++ {
			if c := colors[i]; c.IsSet() {
				frame[i*3+0] = c.R()
				frame[i*3+1] = c.G()
				frame[i*3+2] = c.B()
			}
		}
		if err := s.write(frame); err != nil {
			return nil, err
		}
		s.frame = frame
	}
	if save {
		for i := 0; i < s.count; i++ {
			if colors[i].IsSet() {
				s.saved[i] = colors[i]
			}
		}
	}
	return s.snapshot(), nil
}

func (s *Strip) Get() []ledcolor.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Reset turns every channel off, saved and shown.
func (s *Strip) Reset() ([]ledcolor.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := make([]byte, len(s.frame))
	if err := s.write(frame); err != nil {
		return nil, err
	}
	s.frame = frame
	s.saved = ledcolor.Zero(s.count)
	return s.snapshot(), nil
}

// Frame returns a copy of the visible RGB frame.
func (s *Strip) Frame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.frame...)
}

func (s *Strip) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close()
}

func (s *Strip) write(frame []byte) error {
	if s.driver == nil {
		return nil
	}
	if err := s.driver.Write(append([]byte(nil), frame...)); err != nil {
		return fmt.Errorf("driver write: %w", err)
	}
	return nil
}

func (s *Strip) snapshot() []ledcolor.Color {
	return append([]ledcolor.Color(nil), s.saved...)
}
