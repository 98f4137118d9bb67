package ledcolor_test

import (
	"encoding/json"
	"strconv"
	"testing"

	. "github.com/coreman2200/edged/internal/ledcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var TestRGBIsExpectedColor = []struct {
	R      uint8
	G      uint8
	B      uint8
	Expect uint32
}{
	{0x11, 0x22, 0x33, 0x112233},
	{0x44, 0x2A, 0x34, 0x442A34},
	{0x88, 0x3B, 0x35, 0x883B35},
	{0xFF, 0xFF, 0xFF, 0xFFFFFF},
}

func TestColorsRGB(t *testing.T) {
	for k, v := range TestRGBIsExpectedColor {
		t.Run("Given RGB"+strconv.Itoa(k), func(t *testing.T) {
			col := RGB(v.R, v.G, v.B)
			assert.Equal(t, v.Expect, col.Packed(), "should be same val")
			assert.Equal(t, v.R, col.R())
			assert.Equal(t, v.G, col.G())
			assert.Equal(t, v.B, col.B())
		})
	}
}

var TestWireFormDecodes = []struct {
	Name   string
	Wire   string
	Set    bool
	Expect uint32
}{
	{"null", `null`, false, 0},
	{"packed int", `16711680`, true, 0xFF0000},
	{"int above 24 bits masked", `4278190335`, true, 0x0000FF},
	{"negative int", `-5`, false, 0},
	{"fractional", `1.5`, false, 0},
	{"whole float", `1.0`, false, 0},
	{"exponent", `1e3`, false, 0},
	{"int beyond 32 bits", `4294967296`, false, 0},
	{"hex with hash", `"#00ff7f"`, true, 0x00FF7F},
	{"hex without hash", `"102030"`, true, 0x102030},
	{"short hex keeps nibble values", `"#fff"`, true, 0x0F0F0F},
	{"wide hex clamps", `"#fff000000"`, true, 0xFF0000},
	{"bool", `true`, false, 0},
	{"object", `{"r":1}`, false, 0},
	{"array", `[1,2,3]`, false, 0},
}

func TestColorUnmarshalWireForms(t *testing.T) {
	for _, v := range TestWireFormDecodes {
		t.Run(v.Name, func(t *testing.T) {
			var c Color
			require.NoError(t, json.Unmarshal([]byte(v.Wire), &c))
			assert.Equal(t, v.Set, c.IsSet())
			assert.Equal(t, v.Expect, c.Packed())
		})
	}
}

func TestColorUnmarshalMalformedHex(t *testing.T) {
	for _, wire := range []string{`"#ff"`, `"#zzzzzz"`, `"#"`, `""`} {
		var c Color
		assert.Error(t, json.Unmarshal([]byte(wire), &c), wire)
	}
}

func TestColorArrayRoundTrip(t *testing.T) {
	var cs []Color
	require.NoError(t, json.Unmarshal([]byte(`[255, null, "#010203", false]`), &cs))
	require.Len(t, cs, 4)

	b, err := json.Marshal(cs)
	require.NoError(t, err)
	assert.JSONEq(t, `[255, null, 66051, null]`, string(b))
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "#ff8000", RGB(0xFF, 0x80, 0x00).Hex())
	assert.Equal(t, "", Unset.Hex())
	assert.Equal(t, "unset", Unset.String())
}

func TestZero(t *testing.T) {
	z := Zero(6)
	require.Len(t, z, 6)
	for _, c := range z {
		assert.True(t, c.IsSet())
		assert.Zero(t, c.Packed())
	}
	for _, c := range Unsets(3) {
		assert.False(t, c.IsSet())
	}
}
