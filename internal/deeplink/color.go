package deeplink

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 0xRRGGBB value
type Color uint32

// ParseColor reads a 0x-prefixed hexadecimal color
func ParseColor(s string) (Color, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok || digits == "" {
		return 0, ErrInvalidColor
	}
	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, ErrInvalidColor
	}
	return Color(value), nil
}

// RGB returns the red, green and blue components in [0, 1]
func (c Color) RGB() (r, g, b float64) {
	r = float64((c&0xFF0000)>>16) / 255
	g = float64((c&0xFF00)>>8) / 255
	b = float64(c&0xFF) / 255
	return r, g, b
}

func (c Color) String() string {
	return fmt.Sprintf("0x%06X", uint32(c))
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
