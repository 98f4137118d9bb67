package ledcolor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0

	rgbMask uint32 = 0xFFFFFF
)

// Color is either unset (a no-op for its channel) or a concrete RGB value
// packed as 0xRRGGBB.
type Color struct {
	val uint32
	set bool
}

// Unset is the zero Color.
var Unset = Color{}

func NewColor(c uint32) Color {
	return Color{val: c & rgbMask, set: true}
}

func RGB(r, g, b uint8) Color {
	c := NewColor(0)
	c.SetR(r)
	c.SetG(g)
	c.SetB(b)
	return c
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & (mask)) >> off)
}

func (c Color) IsSet() bool { return c.set }

// Packed returns 0xRRGGBB. Unset colors pack to 0.
func (c Color) Packed() uint32 { return c.val }

func (c Color) R() uint8 { return getcolor(c.val, RED_OFFSET) }
func (c Color) G() uint8 { return getcolor(c.val, GREEN_OFFSET) }
func (c Color) B() uint8 { return getcolor(c.val, BLUE_OFFSET) }

func (c *Color) SetR(r uint8) { c.val = setcolor(c.val, r, RED_OFFSET) }
func (c *Color) SetG(g uint8) { c.val = setcolor(c.val, g, GREEN_OFFSET) }
func (c *Color) SetB(b uint8) { c.val = setcolor(c.val, b, BLUE_OFFSET) }

// Hex renders the color as "#rrggbb"; unset renders as "".
func (c Color) Hex() string {
	if !c.set {
		return ""
	}
	return colorful.Color{
		R: float64(c.R()) / 255.0,
		G: float64(c.G()) / 255.0,
		B: float64(c.B()) / 255.0,
	}.Hex()
}

func (c Color) String() string {
	if !c.set {
		return "unset"
	}
	return c.Hex()
}

// MarshalJSON writes the packed integer, or null when unset.
func (c Color) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatUint(uint64(c.val), 10)), nil
}

// UnmarshalJSON accepts the wire forms: a packed integer, a hex string or
// null. Any other JSON type decodes as unset. Malformed hex is an error.
func (c *Color) UnmarshalJSON(b []byte) error {
	*c = Unset
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case 'n':
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseHex(s)
		if err != nil {
			return err
		}
		*c = v
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		// Only integer literals are colors; 1.0 and 1e3 stay unset.
		if bytes.ContainsAny(b, ".eE") {
			return nil
		}
		v, err := strconv.ParseUint(string(b), 10, 32)
		if err != nil {
			return nil
		}
		*c = NewColor(uint32(v))
	}
	return nil
}

// ParseHex decodes "#RRGGBB"-style strings. The digits after the optional
// leading '#' are split into three equal groups, each decoded as hex; a
// group larger than 0xFF clamps to 255.
func ParseHex(s string) (Color, error) {
	v := strings.TrimLeft(s, "#")
	n := len(v)
	if n == 0 || n%3 != 0 {
		return Unset, fmt.Errorf("invalid hex color %q", s)
	}
	w := n / 3
	var parts [3]uint8
	for i := 0; i < 3; i++ {
		p, err := strconv.ParseUint(v[i*w:(i+1)*w], 16, 64)
		if err != nil {
			return Unset, fmt.Errorf("invalid hex color %q", s)
		}
		if p > 0xFF {
			p = 0xFF
		}
		parts[i] = uint8(p)
	}
	return RGB(parts[0], parts[1], parts[2]), nil
}

// Zero returns n concrete black colors.
func Zero(n int) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = NewColor(0)
	}
	return out
}

// Unsets returns n unset colors.
func Unsets(n int) []Color {
	return make([]Color, n)
}
