// Package argparse turns the flag-style command surface into a validated
// model.BindingSpec.
//
// Tokens are grouped as --flag v1 v2 --other v3: every value belongs to the
// closest flag on its left and repeated flags merge their values, so
// "--list a --list b" and "--list a b" are equivalent.
package argparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sliink/liveplot/internal/model"
)

const (
	// DefaultWidth is the surface width used when --width is omitted
	DefaultWidth = 400
	// DefaultHeight is the surface height used when --height is omitted
	DefaultHeight = 300
	// DefaultTarget is the target name used when --target is omitted
	DefaultTarget = "default"
	// MaxDimension bounds --width and --height
	MaxDimension = 8192
)

const (
	flagList   = "--list"
	flagWidth  = "--width"
	flagHeight = "--height"
	flagTarget = "--target"
	flagIndex  = "--index"
	flagOpen   = "--open"
)

var knownFlags = map[string]bool{
	flagList:   true,
	flagWidth:  true,
	flagHeight: true,
	flagTarget: true,
	flagIndex:  true,
	flagOpen:   true,
}

// ErrInvalidArgument is wrapped by every validation failure
var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError reports which flag was rejected and why
type ValidationError struct {
	Flag   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Flag == "" {
		return "invalid arguments: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Flag, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidArgument)
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func invalid(flag, format string, args ...interface{}) error {
	return &ValidationError{Flag: flag, Reason: fmt.Sprintf(format, args...)}
}

// Group maps every flag to the values that follow it. Values appearing
// before the first flag are rejected.
func Group(tokens []string) (map[string][]string, error) {
	groups := make(map[string][]string)
	current := ""
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "--") {
			current = tok
			if _, ok := groups[current]; !ok {
				groups[current] = []string{}
			}
			continue
		}
		if current == "" {
			return nil, invalid("", "value %q is not preceded by a flag", tok)
		}
		groups[current] = append(groups[current], tok)
	}
	return groups, nil
}

// Parse builds a BindingSpec from tokens, applying defaults and validating
// every flag. It has no side effects.
func Parse(tokens []string) (model.BindingSpec, error) {
	groups, err := Group(tokens)
	if err != nil {
		return model.BindingSpec{}, err
	}

	for flag := range groups {
		if !knownFlags[flag] {
			return model.BindingSpec{}, invalid(flag, "unknown flag")
		}
	}

	spec := model.BindingSpec{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Target: DefaultTarget,
		Index:  model.IndexNatural,
	}

	lists, ok := groups[flagList]
	if !ok {
		return model.BindingSpec{}, invalid(flagList, "is required")
	}
	if len(lists) == 0 {
		return model.BindingSpec{}, invalid(flagList, "requires at least one source")
	}
	spec.Sources = append([]string(nil), lists...)

	if values, ok := groups[flagWidth]; ok {
		if spec.Width, err = dimension(flagWidth, values); err != nil {
			return model.BindingSpec{}, err
		}
	}
	if values, ok := groups[flagHeight]; ok {
		if spec.Height, err = dimension(flagHeight, values); err != nil {
			return model.BindingSpec{}, err
		}
	}

	if values, ok := groups[flagTarget]; ok {
		if len(values) != 1 || values[0] == "" {
			return model.BindingSpec{}, invalid(flagTarget, "expects exactly one name")
		}
		spec.Target = values[0]
		if scheme, key, ok := strings.Cut(spec.Target, ":"); ok && scheme == "key" && spec.Watches(key) {
			return model.BindingSpec{}, invalid(flagTarget, "%q would overwrite its own source list", spec.Target)
		}
	}

	if values, ok := groups[flagIndex]; ok {
		if len(values) != 1 {
			return model.BindingSpec{}, invalid(flagIndex, "expects exactly one of natural, zip, xy")
		}
		if spec.Index, err = model.ParseIndexMode(values[0]); err != nil {
			return model.BindingSpec{}, invalid(flagIndex, "%v", err)
		}
	}

	if values, ok := groups[flagOpen]; ok {
		if spec.Open, err = boolish(values); err != nil {
			return model.BindingSpec{}, err
		}
	}

	if spec.Index == model.IndexZip && len(spec.Sources) != 2 {
		return model.BindingSpec{}, invalid(flagList, "zip index requires exactly 2 sources, got %d", len(spec.Sources))
	}

	return spec, nil
}

func dimension(flag string, values []string) (int, error) {
	if len(values) != 1 {
		return 0, invalid(flag, "expects exactly one value")
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, invalid(flag, "%q is not an integer", values[0])
	}
	if n <= 0 {
		return 0, invalid(flag, "must be positive, got %d", n)
	}
	if n > MaxDimension {
		return 0, invalid(flag, "must not exceed %d, got %d", MaxDimension, n)
	}
	return n, nil
}

func boolish(values []string) (bool, error) {
	switch len(values) {
	case 0:
		return true, nil
	case 1:
	default:
		return false, invalid(flagOpen, "expects at most one value")
	}
	switch strings.ToLower(values[0]) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, invalid(flagOpen, "%q is not a boolean", values[0])
}
