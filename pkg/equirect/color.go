package equirect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a colour string is not #RRGGBB.
var ErrInvalidColor = errors.New("invalid color")

var hexColor = regexp.MustCompile(`^#?([A-Fa-f0-9]{6})$`)

// ParseColor parses "#RRGGBB" or "RRGGBB" (case-insensitive).
func ParseColor(s string) (RGB, error) {
	m := hexColor.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseColor is like ParseColor but panics on malformed input.
func MustParseColor(s string) RGB {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the colour as upper-case "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}
