package model

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Color is a marker palette token assigned to a selected site by the
// optimization service. Units inherit the color of their assigned site.
type Color uint8

// The zero value is the fallback token used for anything the palette does not know.
const (
	ColorUnknown Color = iota
	ColorRed
	ColorBlue
	ColorGreen
	ColorOrange
	ColorPurple
	ColorYellow
	ColorCyan
	ColorBrown
)

// PaletteSize is the number of recognized color tokens.
const PaletteSize = 8

var colorNames = [PaletteSize + 1]string{
	"", "red", "blue", "green", "orange", "purple", "yellow", "cyan", "brown",
}

// Palette returns the recognized colors in palette order.
func Palette() []Color {
	out := make([]Color, 0, PaletteSize)
	for c := ColorRed; c <= ColorBrown; c++ {
		out = append(out, c)
	}
	return out
}

// ParseColor maps a token to a Color. Unrecognized tokens yield ColorUnknown.
func ParseColor(s string) Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ColorUnknown
	}
	for i := 1; i < len(colorNames); i++ {
		if colorNames[i] == s {
			return Color(i)
		}
	}
	return ColorUnknown
}

// Known reports whether c is one of the palette colors.
func (c Color) Known() bool {
	return c >= ColorRed && c <= ColorBrown
}

// Slot returns the zero-based palette position of c, or -1 for the fallback.
func (c Color) Slot() int {
	if !c.Known() {
		return -1
	}
	return int(c) - 1
}

func (c Color) String() string {
	if !c.Known() {
		return "unknown"
	}
	return colorNames[c]
}

// MarshalText encodes known colors by name and the fallback as an empty string.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Known() {
		return []byte{}, nil
	}
	return []byte(colorNames[c]), nil
}

// UnmarshalText never fails: unknown tokens decode to ColorUnknown.
func (c *Color) UnmarshalText(b []byte) error {
	*c = ParseColor(string(b))
	if *c == ColorUnknown && len(b) > 0 {
		zap.L().Debug("model: unrecognized color token, using fallback", zap.ByteString("token", b))
	}
	return nil
}

// UnmarshalJSON accepts any JSON value. Non-string values decode to ColorUnknown.
func (c *Color) UnmarshalJSON(b []byte) error {
	var token string
	if err := json.Unmarshal(b, &token); err != nil {
		*c = ColorUnknown
		return nil //nolint:nilerr // malformed tokens fall back instead of failing the payload
	}
	return c.UnmarshalText([]byte(token))
}
