// Package arbiter lets several independent writers share a fixed set of
// LED channels. It combines three policies under a single lock:
//
//   - leases: time-bounded exclusive ownership of a subset of channels,
//     identified by an opaque token;
//   - a device priority mode that gates writers and evicts stale leases
//     when raised;
//   - deferred visibility: a writer without a lease may update the saved
//     color of a leased channel, but the change is only shown once the
//     lease ends.
package arbiter

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/coreman2200/edged/internal/ledcolor"
)

// ChannelStore holds the authoritative channel colors and drives the
// visible output.
type ChannelStore interface {
	Len() int
	Set(colors []ledcolor.Color, save, show bool) ([]ledcolor.Color, error)
	Get() []ledcolor.Color
	Reset() ([]ledcolor.Color, error)
}

type EventKind string

const (
	LeaseGranted  EventKind = "lease.granted"
	LeaseReleased EventKind = "lease.released"
	LeaseExpired  EventKind = "lease.expired"
	LeaseEvicted  EventKind = "lease.evicted"
	ModeChanged   EventKind = "mode.changed"
	DisplayReset  EventKind = "display.reset"
)

// Event describes a lease or mode transition. Observers are called with
// the arbiter lock held and must not block or call back into the Arbiter.
type Event struct {
	Kind     EventKind `json:"kind"`
	Token    string    `json:"lock,omitempty"`
	Channels []int     `json:"lights,omitempty"`
	Mode     Mode      `json:"mode"`
}

type Option func(*Arbiter)

func WithClock(c clockwork.Clock) Option {
	return func(a *Arbiter) { a.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Arbiter) { a.log = l }
}

func WithObserver(f func(Event)) Option {
	return func(a *Arbiter) { a.observe = f }
}

// Arbiter owns the lease table, the device mode and the channel store for
// the lifetime of a server. Every exported method runs atomically with
// respect to the others and to lease expiry.
type Arbiter struct {
	mu    sync.Mutex
	store ChannelStore
	clock clockwork.Clock
	log   zerolog.Logger

	observe func(Event)

	mode        Mode
	lastApplied Mode
	owners      []string
	leases      map[string]*lease
}

type lease struct {
	token    string
	channels []int
	mode     Mode
	expires  time.Time
	timer    clockwork.Timer
}

// Lease is a read-only view of an active lease.
type Lease struct {
	Token    string    `json:"lock"`
	Channels []int     `json:"lights"`
	Mode     Mode      `json:"mode"`
	Expires  time.Time `json:"expires"`
}

func New(store ChannelStore, opts ...Option) *Arbiter {
	a := &Arbiter{
		store:       store,
		clock:       clockwork.NewRealClock(),
		log:         zerolog.Nop(),
		mode:        Normal,
		lastApplied: Normal,
		owners:      make([]string, store.Len()),
		leases:      map[string]*lease{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Channels returns N, the number of channels under arbitration.
func (a *Arbiter) Channels() int { return len(a.owners) }

// Leases returns the active leases ordered by expiry.
func (a *Arbiter) Leases() []Lease {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Lease, 0, len(a.leases))
	for _, l := range a.leases {
		out = append(out, Lease{
			Token:    l.token,
			Channels: append([]int(nil), l.channels...),
			Mode:     l.mode,
			Expires:  l.expires,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expires.Before(out[j].Expires) })
	return out
}

// Close cancels every pending expiry and forgets all leases without
// touching the store.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for token, l := range a.leases {
		l.timer.Stop()
		delete(a.leases, token)
	}
	for i := range a.owners {
		a.owners[i] = ""
	}
}

func (a *Arbiter) emit(e Event) {
	if a.observe != nil {
		a.observe(e)
	}
}
