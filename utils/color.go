package utils

import (
	"fmt"
	"image/color"
	"strings"
)

// HexToRGBA converts a color expressed as hexadecimal string ("#rrggbb" or "#rgb") to RGBA.
// An invalid string yields opaque red.
func HexToRGBA(x string) color.RGBA {
	var r, g, b uint8
	fallback := color.RGBA{R: 0xff, A: 0xff}

	hex := strings.TrimPrefix(x, "#")
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return fallback
		}
	case 3:
		if _, err := fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b); err != nil {
			return fallback
		}
		r, g, b = r*17, g*17, b*17
	default:
		return fallback
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
