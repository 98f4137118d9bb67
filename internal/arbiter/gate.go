package arbiter

import "fmt"

// GateCheck passes when requested is at or above current.
func GateCheck(requested, current Mode) error {
	if requested < current {
		return fmt.Errorf("%w (%s < %s)", ErrPriority, requested, current)
	}
	return nil
}

// Mode returns the current device mode.
func (a *Arbiter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetMode switches the device mode. Leases granted below the new mode are
// torn down, and the display is blanked when the last general push was
// made below it. Setting the current mode again is a no-op.
func (a *Arbiter) SetMode(m Mode) Mode {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m == a.mode {
		return a.mode
	}
	prev := a.mode
	a.mode = m
	a.log.Info().Stringer("from", prev).Stringer("to", m).Msg("device mode changed")
	a.emit(Event{Kind: ModeChanged, Mode: m})

	for token, l := range a.leases {
		if l.mode < m {
			a.log.Info().Str("lock", token).Stringer("granted", l.mode).Msg("lease evicted")
			a.clearLock(token, LeaseEvicted)
		}
	}

	if a.lastApplied < m {
		if _, err := a.store.Reset(); err != nil {
			a.log.Warn().Err(err).Msg("display reset failed")
		} else {
			a.emit(Event{Kind: DisplayReset, Mode: m})
		}
	}
	return a.mode
}
