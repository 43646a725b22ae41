package table

import (
	"fmt"
	"strings"
)

type integrationKind uint8

const (
	kindLinear integrationKind = iota
	kindFloor
	kindCeiling
	kindCustom
)

// BlendFunc blends a low and a high cell value at fraction in [0,1].
type BlendFunc func(low, high, fraction float64) float64

// Integration selects how a dimension blends its two bracketing cells.
// The built-in kinds dispatch through a switch; Custom carries a BlendFunc.
type Integration struct {
	kind  integrationKind
	blend BlendFunc
}

var (
	// Linear interpolates: low + (high-low)*fraction.
	Linear = Integration{kind: kindLinear}

	// Floor always returns the low cell.
	Floor = Integration{kind: kindFloor}

	// Ceiling always returns the high cell.
	Ceiling = Integration{kind: kindCeiling}
)

// Custom wraps fn as an Integration. A nil fn behaves like Linear.
func Custom(fn BlendFunc) Integration {
	if fn == nil {
		return Linear
	}

	return Integration{kind: kindCustom, blend: fn}
}

// ParseIntegration maps a configuration name to a built-in Integration.
func ParseIntegration(name string) (Integration, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return Linear, nil
	case "floor":
		return Floor, nil
	case "ceiling", "ceil":
		return Ceiling, nil
	default:
		return Integration{}, fmt.Errorf("table: unknown integration %q", name)
	}
}

// Blend combines low and high at fraction.
func (i Integration) Blend(low, high, fraction float64) float64 {
	switch i.kind {
	case kindFloor:
		return low
	case kindCeiling:
		return high
	case kindCustom:
		return i.blend(low, high, fraction)
	default:
		return low + (high-low)*fraction
	}
}

// String returns the configuration name.
func (i Integration) String() string {
	switch i.kind {
	case kindFloor:
		return "floor"
	case kindCeiling:
		return "ceiling"
	case kindCustom:
		return "custom"
	default:
		return "linear"
	}
}
