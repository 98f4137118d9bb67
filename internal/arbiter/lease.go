package arbiter

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coreman2200/edged/internal/ledcolor"
)

// RequestLock grants exclusive use of channels for d. The lease expires on
// its own unless released first.
func (a *Arbiter) RequestLock(channels []int, d time.Duration, m Mode) (Lease, error) {
	if d <= 0 {
		return Lease{}, fmt.Errorf("%w: no lock duration specified", ErrValidation)
	}
	if len(channels) == 0 {
		return Lease{}, fmt.Errorf("%w: no light lock set specified", ErrValidation)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	chans, err := a.normalize(channels)
	if err != nil {
		return Lease{}, err
	}
	if err := GateCheck(m, a.mode); err != nil {
		return Lease{}, err
	}
	for _, ch := range chans {
		if a.owners[ch] != "" {
			return Lease{}, fmt.Errorf("%w: light %d", ErrLockConflict, ch)
		}
	}

	token := uuid.NewString()
	l := &lease{
		token:    token,
		channels: chans,
		mode:     m,
		expires:  a.clock.Now().Add(d),
	}
	for _, ch := range chans {
		a.owners[ch] = token
	}
	a.leases[token] = l
	l.timer = a.clock.AfterFunc(d, func() { a.expire(token) })

	a.log.Debug().Str("lock", token).Ints("lights", chans).Dur("duration", d).Stringer("mode", m).Msg("lease granted")
	a.emit(Event{Kind: LeaseGranted, Token: token, Channels: chans, Mode: m})

	return Lease{
		Token:    token,
		Channels: append([]int(nil), chans...),
		Mode:     m,
		Expires:  l.expires,
	}, nil
}

// ReleaseLock ends a lease early and shows the saved colors of its
// channels.
func (a *Arbiter) ReleaseLock(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.leases[token]; !ok || token == "" {
		return fmt.Errorf("%w: %q", ErrUnknownLock, token)
	}
	a.log.Debug().Str("lock", token).Msg("lease released")
	a.clearLock(token, LeaseReleased)
	return nil
}

// ClearLock tears down a lease by token. A second call for the same token
// is a no-op.
func (a *Arbiter) ClearLock(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLock(token, LeaseReleased)
}

func (a *Arbiter) expire(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.leases[token]; !ok {
		return
	}
	a.log.Debug().Str("lock", token).Msg("lease expired")
	a.clearLock(token, LeaseExpired)
}

// clearLock must be called with a.mu held. The timer may already be firing;
// its callback finds the token gone and returns.
func (a *Arbiter) clearLock(token string, why EventKind) {
	l, ok := a.leases[token]
	if !ok {
		return
	}
	delete(a.leases, token)
	l.timer.Stop()

	saved := a.store.Get()
	restore := ledcolor.Unsets(len(a.owners))
	for _, ch := range l.channels {
		if a.owners[ch] == token && ch < len(saved) {
			restore[ch] = saved[ch]
		}
	}
	if _, err := a.store.Set(restore, false, true); err != nil {
		a.log.Warn().Err(err).Str("lock", token).Msg("restoring leased lights failed")
	}
	for _, ch := range l.channels {
		if a.owners[ch] == token {
			a.owners[ch] = ""
		}
	}
	a.emit(Event{Kind: why, Token: token, Channels: l.channels, Mode: l.mode})
}

// normalize validates channel indices and collapses duplicates.
func (a *Arbiter) normalize(channels []int) ([]int, error) {
	seen := make(map[int]bool, len(channels))
	out := make([]int, 0, len(channels))
	for _, ch := range channels {
		if ch < 0 || ch >= len(a.owners) {
			return nil, fmt.Errorf("%w: light %d out of range [0, %d)", ErrValidation, ch, len(a.owners))
		}
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	sort.Ints(out)
	return out, nil
}
