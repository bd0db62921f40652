// Package units provides physical unit tagging and consistency checking
// for catalog quantities. Values carry an explicit kind tag (scalar,
// sequence, column, masked column, coordinate) and an optional unit;
// Check normalizes a value to a target unit or reports an incompatibility.
package units

import (
	"fmt"
	"log"
	"math"
)

// Dimension identifies a physical dimension. Units are convertible only
// within the same dimension.
type Dimension int

const (
	DimNone Dimension = iota
	DimAngle
	DimFlux
	DimFrequency
	DimPixel
)

func (d Dimension) String() string {
	switch d {
	case DimAngle:
		return "angle"
	case DimFlux:
		return "flux"
	case DimFrequency:
		return "frequency"
	case DimPixel:
		return "pixel"
	default:
		return "dimensionless"
	}
}

// Unit is a named physical unit. Scale converts a value in this unit to
// the dimension's canonical unit (deg, Jy, GHz, pix). The zero Unit means
// "no unit attached".
type Unit struct {
	Name  string
	Dim   Dimension
	Scale float64
}

// Common units.
var (
	Degree    = Unit{Name: "deg", Dim: DimAngle, Scale: 1}
	Arcsec    = Unit{Name: "arcsec", Dim: DimAngle, Scale: 1.0 / 3600.0}
	Radian    = Unit{Name: "rad", Dim: DimAngle, Scale: 180.0 / math.Pi}
	Jansky    = Unit{Name: "Jy", Dim: DimFlux, Scale: 1}
	MilliJy   = Unit{Name: "mJy", Dim: DimFlux, Scale: 1e-3}
	GigaHertz = Unit{Name: "GHz", Dim: DimFrequency, Scale: 1}
	MegaHertz = Unit{Name: "MHz", Dim: DimFrequency, Scale: 1e-3}
	Pixel     = Unit{Name: "pix", Dim: DimPixel, Scale: 1}
)

// IsZero reports whether no unit is attached.
func (u Unit) IsZero() bool { return u == Unit{} }

// Equivalent reports whether two units share a dimension and can be
// converted into one another.
func (u Unit) Equivalent(v Unit) bool {
	return !u.IsZero() && !v.IsZero() && u.Dim == v.Dim
}

// Factor returns the multiplier that converts a value in u to v.
func (u Unit) Factor(v Unit) (float64, error) {
	if !u.Equivalent(v) {
		return 0, &NonEquivalentError{From: u, To: v}
	}
	return u.Scale / v.Scale, nil
}

// NonEquivalentError signals that two quantities have incompatible
// physical dimensions, or that dimensioned and dimensionless values were
// mixed in a sequence.
type NonEquivalentError struct {
	From   Unit
	To     Unit
	Reason string
}

func (e *NonEquivalentError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("non-equivalent units: %s (%s) and %s (%s)",
		e.From.Name, e.From.Dim, e.To.Name, e.To.Dim)
}

// Mode selects how Check reacts to a unit mismatch.
type Mode int

const (
	// Strict returns a *NonEquivalentError on mismatch.
	Strict Mode = iota
	// Lenient logs a warning and passes the value through unchanged.
	Lenient
)

// Kind tags the shape of a checked value.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindColumn
	KindMaskedColumn
	KindCoord
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindColumn:
		return "column"
	case KindMaskedColumn:
		return "masked column"
	case KindCoord:
		return "coordinate"
	default:
		return "scalar"
	}
}

// Value is a unit-tagged quantity of one of the supported kinds. Only the
// fields relevant to the kind are populated.
type Value struct {
	Kind Kind
	Unit Unit // zero Unit = no unit attached

	Scalar float64 // KindScalar
	Items  []Value // KindSequence; each item a KindScalar with its own unit
	Name   string  // KindColumn, KindMaskedColumn
	Data   []float64
	Valid  []bool  // KindMaskedColumn
	X, Y   float64 // KindCoord
}

// ScalarValue wraps a bare float64 with no unit attached.
func ScalarValue(v float64) Value { return Value{Kind: KindScalar, Scalar: v} }

// Quantity wraps a float64 expressed in the given unit.
func Quantity(v float64, u Unit) Value { return Value{Kind: KindScalar, Scalar: v, Unit: u} }

// Check returns v expressed in the target unit. Unitless values are
// assumed to already be in the target unit (with a logged warning);
// values in an equivalent unit are converted; values in a non-equivalent
// unit fail (Strict) or pass through unchanged with a warning (Lenient).
func Check(v Value, target Unit, mode Mode) (Value, error) {
	switch v.Kind {
	case KindSequence:
		return checkSequence(v, target, mode)
	case KindCoord:
		// Coordinates are frame-checked only, never rescaled.
		if v.Unit.IsZero() {
			log.Printf("units: assuming coordinate is in %s", target.Name)
			v.Unit = target
			return v, nil
		}
		if v.Unit.Equivalent(target) {
			return v, nil
		}
		return mismatch(v, target, mode)
	case KindColumn, KindMaskedColumn:
		if v.Unit.IsZero() {
			log.Printf("units: assuming column %q is in %s", v.Name, target.Name)
			v.Unit = target
			return v, nil
		}
		if !v.Unit.Equivalent(target) {
			return mismatch(v, target, mode)
		}
		f, err := v.Unit.Factor(target)
		if err != nil {
			return v, err
		}
		out := v
		out.Unit = target
		out.Data = make([]float64, len(v.Data))
		for i, d := range v.Data {
			out.Data[i] = d * f
		}
		return out, nil
	default: // KindScalar
		if v.Unit.IsZero() {
			log.Printf("units: assuming quantity is in %s", target.Name)
			v.Unit = target
			return v, nil
		}
		if !v.Unit.Equivalent(target) {
			return mismatch(v, target, mode)
		}
		f, err := v.Unit.Factor(target)
		if err != nil {
			return v, err
		}
		out := v
		out.Unit = target
		out.Scalar = v.Scalar * f
		return out, nil
	}
}

// checkSequence applies the sequence rules: all-unitless sequences get
// the target unit attached wholesale; mixing dimensioned and
// dimensionless items fails in both modes; all-dimensioned items must be
// pairwise equivalent and are converted element-wise.
func checkSequence(v Value, target Unit, mode Mode) (Value, error) {
	withUnit, withoutUnit := 0, 0
	for _, it := range v.Items {
		if it.Unit.IsZero() {
			withoutUnit++
		} else {
			withUnit++
		}
	}

	if withUnit == 0 {
		log.Printf("units: assuming sequence is in %s", target.Name)
		out := v
		out.Unit = target
		out.Items = make([]Value, len(v.Items))
		for i, it := range v.Items {
			it.Unit = target
			out.Items[i] = it
		}
		return out, nil
	}
	if withoutUnit > 0 {
		return v, &NonEquivalentError{Reason: "cannot mix units and scalars"}
	}

	// All items carry units: every pairwise combination must be equivalent.
	for i := 0; i < len(v.Items); i++ {
		for j := i + 1; j < len(v.Items); j++ {
			if !v.Items[i].Unit.Equivalent(v.Items[j].Unit) {
				return v, &NonEquivalentError{From: v.Items[i].Unit, To: v.Items[j].Unit}
			}
		}
	}

	out := v
	out.Unit = target
	out.Items = make([]Value, len(v.Items))
	for i, it := range v.Items {
		conv, err := Check(it, target, mode)
		if err != nil {
			return v, err
		}
		out.Items[i] = conv
	}
	return out, nil
}

func mismatch(v Value, target Unit, mode Mode) (Value, error) {
	if mode == Lenient {
		log.Printf("units: %s in %s not equivalent to %s; passing through unchanged",
			v.Kind, v.Unit.Name, target.Name)
		return v, nil
	}
	return v, &NonEquivalentError{From: v.Unit, To: target}
}

// Convert is a shorthand for converting a bare float64 between two known
// units.
func Convert(val float64, from, to Unit) (float64, error) {
	f, err := from.Factor(to)
	if err != nil {
		return 0, err
	}
	return val * f, nil
}
