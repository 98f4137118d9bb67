package led

import "sync"

// Sim is a hardware-less driver. It counts frames and keeps the last one.
type Sim struct {
	mu    sync.Mutex
	count int
	last  []byte
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.last = append(s.last[:0], rgb...)
	return nil
}

func (s *Sim) Close() error { return nil }

// Frames returns the number of frames written so far.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}
