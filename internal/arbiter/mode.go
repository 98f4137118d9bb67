package arbiter

import (
	"fmt"
	"strings"
)

// Mode is the device priority level. Writers below the current mode are
// rejected, and raising the mode evicts leases granted below it.
type Mode int

const (
	Normal Mode = iota
	Ambient
	Critical
)

var modeNames = [...]string{
	Normal:   "normal",
	Ambient:  "ambient",
	Critical: "critical",
}

// ParseMode accepts a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return Normal, fmt.Errorf("%w: unknown mode specified: %q", ErrValidation, s)
}

func (m Mode) String() string {
	if m < Normal || m > Critical {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
