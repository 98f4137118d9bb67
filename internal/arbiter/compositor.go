package arbiter

import (
	"fmt"

	"github.com/coreman2200/edged/internal/ledcolor"
)

// SetColors applies a color push. With a lock token only the lease's
// channels are written, saved and shown. Without one, leased channels are
// saved but not shown and the rest are saved and shown.
func (a *Arbiter) SetColors(colors []ledcolor.Color, token string, m Mode) ([]ledcolor.Color, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.owners)
	if len(colors) < n {
		return nil, fmt.Errorf("%w: insufficient colors specified: got %d, need %d", ErrValidation, len(colors), n)
	}
	if err := GateCheck(m, a.mode); err != nil {
		return nil, err
	}

	if token != "" {
		if _, ok := a.leases[token]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLock, token)
		}
		owned := ledcolor.Unsets(n)
		for i := 0; i < n; i++ {
			if a.owners[i] == token {
				owned[i] = colors[i]
			}
		}
		if _, err := a.store.Set(owned, true, true); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDriver, err)
		}
		return a.store.Get(), nil
	}

	locked := ledcolor.Unsets(n)
	active := ledcolor.Unsets(n)
	for i := 0; i < n; i++ {
		if a.owners[i] != "" {
			locked[i] = colors[i]
		} else {
			active[i] = colors[i]
		}
	}
	// The visible write goes first so a driver failure leaves the saved
	// state of leased channels untouched too.
	if _, err := a.store.Set(active, true, true); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriver, err)
	}
	if _, err := a.store.Set(locked, true, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriver, err)
	}
	a.lastApplied = m
	return a.store.Get(), nil
}

// GetColors returns the saved state of every channel.
func (a *Arbiter) GetColors() []ledcolor.Color {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Get()
}
