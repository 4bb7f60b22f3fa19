package engine

import "fmt"

// Multiplier identifies which ring of the board a dart landed in.
type Multiplier string

const (
	Single    Multiplier = "S"
	Double    Multiplier = "D"
	Triple    Multiplier = "T"
	OuterBull Multiplier = "OB"
	Bull      Multiplier = "B"
)

// Dart is a single throw. Value is 1-20 for the numbered segments; the bull
// variants carry fixed values (25 outer, 50 inner) and ignore the segment
// multiplier rules.
type Dart struct {
	Mult  Multiplier `json:"mult"`
	Value int        `json:"value"`
}

// Points returns the score a dart is worth.
func (d Dart) Points() int {
	switch d.Mult {
	case Single:
		return d.Value
	case Double:
		return d.Value * 2
	case Triple:
		return d.Value * 3
	case OuterBull:
		return 25
	case Bull:
		return 50
	default:
		return 0
	}
}

// Valid reports whether the dart describes a real board segment.
func (d Dart) Valid() bool {
	switch d.Mult {
	case Single, Double, Triple:
		return d.Value >= 1 && d.Value <= 20
	case OuterBull:
		return d.Value == 25
	case Bull:
		return d.Value == 50
	default:
		return false
	}
}

// FinishesLeg reports whether the dart is a legal final dart under the
// double-out rule. The inner bull counts as double 25; the outer bull is a
// single and does not finish.
func (d Dart) FinishesLeg() bool {
	return d.Mult == Double || d.Mult == Bull
}

// Label renders a dart the way players call it: "T20", "D16", "OB", "Bull".
func (d Dart) Label() string {
	switch d.Mult {
	case Bull:
		return "Bull"
	case OuterBull:
		return "OB"
	default:
		return fmt.Sprintf("%s%d", d.Mult, d.Value)
	}
}
