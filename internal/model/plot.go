package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is one (x, y) sample ready to be drawn
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RGB is an 8-bit color triple
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// PlotSpec is the renderer-ready set of series. Series[i] is drawn with
// Colors[i]; both slices always have the same length.
type PlotSpec struct {
	Series     [][]Point `json:"series"`
	Colors     []RGB     `json:"colors"`
	Background RGB       `json:"background"`
}

// Size returns the total number of points across all series
func (p PlotSpec) Size() int {
	n := 0
	for _, s := range p.Series {
		n += len(s)
	}
	return n
}

// Empty reports whether no series has any point
func (p PlotSpec) Empty() bool {
	return p.Size() == 0
}

// ParseRGB parses a "#rrggbb" or "rrggbb" hex color
func ParseRGB(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats c as "#rrggbb"
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
