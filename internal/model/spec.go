package model

import (
	"fmt"
	"strings"
)

// IndexMode is the policy used to turn stored samples into (x, y) points.
type IndexMode int

const (
	// IndexNatural plots value i of each source at x = i.
	IndexNatural IndexMode = iota
	// IndexZip takes x from the first source and y from the second.
	IndexZip
	// IndexXY reads interleaved x y pairs from one source. Not implemented.
	IndexXY
)

// String returns the command-surface spelling of the mode
func (m IndexMode) String() string {
	switch m {
	case IndexNatural:
		return "natural"
	case IndexZip:
		return "zip"
	case IndexXY:
		return "xy"
	default:
		return fmt.Sprintf("IndexMode(%d)", int(m))
	}
}

// ParseIndexMode parses the command-surface spelling of an index mode
func ParseIndexMode(s string) (IndexMode, error) {
	switch strings.ToLower(s) {
	case "natural":
		return IndexNatural, nil
	case "zip":
		return IndexZip, nil
	case "xy":
		return IndexXY, nil
	}
	return 0, fmt.Errorf("unknown index mode %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m IndexMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *IndexMode) UnmarshalText(text []byte) error {
	parsed, err := ParseIndexMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// BindingSpec describes what to plot, from where, and how. Treat it as a
// value: it is never mutated after the argument parser builds it.
type BindingSpec struct {
	Sources []string  `json:"sources"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Target  string    `json:"target"`
	Index   IndexMode `json:"index"`
	Open    bool      `json:"open"`
}

// Clone returns a copy that shares no memory with s
func (s BindingSpec) Clone() BindingSpec {
	c := s
	c.Sources = append([]string(nil), s.Sources...)
	return c
}

// Watches reports whether source is one of the spec's sources
func (s BindingSpec) Watches(source string) bool {
	for _, src := range s.Sources {
		if src == source {
			return true
		}
	}
	return false
}
