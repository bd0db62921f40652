package ellipse

import (
	"math"
	"testing"

	"github.com/skymap-data/sourcecat/internal/units"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewChecksUnits(t *testing.T) {
	e, err := New(
		units.Quantity(3600, units.Arcsec),
		units.ScalarValue(0.5),
		units.Quantity(45, units.Degree),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !almostEqual(e.MajorDeg, 1.0, 1e-12) {
		t.Errorf("major = %v deg, want 1.0", e.MajorDeg)
	}
	if !almostEqual(e.MinorDeg, 0.5, 1e-12) {
		t.Errorf("minor = %v deg, want 0.5", e.MinorDeg)
	}

	_, err = New(
		units.Quantity(1, units.Jansky),
		units.ScalarValue(0.5),
		units.ScalarValue(0),
	)
	if err == nil {
		t.Error("expected error for flux-unit major axis")
	}
}

func TestCommonIdentical(t *testing.T) {
	e := Ellipse{MajorDeg: 2e-3, MinorDeg: 1e-3, PADeg: 30}
	got, err := Common(e, e)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}
	if !almostEqual(got.MajorDeg, e.MajorDeg, 1e-9) ||
		!almostEqual(got.MinorDeg, e.MinorDeg, 1e-9) {
		t.Errorf("Common(e, e) = %+v, want %+v", got, e)
	}
}

func TestCommonContainment(t *testing.T) {
	big := Ellipse{MajorDeg: 4e-3, MinorDeg: 3e-3, PADeg: 10}
	small := Ellipse{MajorDeg: 1e-3, MinorDeg: 0.5e-3, PADeg: 80}

	got, err := Common(big, small)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}
	if got != big {
		t.Errorf("Common(big, small) = %+v, want the containing ellipse %+v", got, big)
	}

	got, err = Common(small, big)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}
	if got != big {
		t.Errorf("Common(small, big) = %+v, want the containing ellipse %+v", got, big)
	}
}

func TestCommonCircles(t *testing.T) {
	c1 := Ellipse{MajorDeg: 1e-3, MinorDeg: 1e-3, PADeg: 0}
	c2 := Ellipse{MajorDeg: 2e-3, MinorDeg: 2e-3, PADeg: 0}
	got, err := Common(c1, c2)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}
	if !almostEqual(got.MajorDeg, 2e-3, 1e-9) || !almostEqual(got.MinorDeg, 2e-3, 1e-9) {
		t.Errorf("Common of concentric circles = %+v, want the larger circle", got)
	}
}

func TestCommonPerpendicular(t *testing.T) {
	// Two identical elongated ellipses at right angles: the minimal common
	// ellipse is the circle with the major axis as diameter.
	e1 := Ellipse{MajorDeg: 2e-3, MinorDeg: 1e-3, PADeg: 0}
	e2 := Ellipse{MajorDeg: 2e-3, MinorDeg: 1e-3, PADeg: 90}
	got, err := Common(e1, e2)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}
	if !almostEqual(got.MajorDeg, 2e-3, 1e-8) || !almostEqual(got.MinorDeg, 2e-3, 1e-8) {
		t.Errorf("Common of crossed ellipses = %+v, want 2e-3 circle", got)
	}
}

func TestCommonSymmetric(t *testing.T) {
	e1 := Ellipse{MajorDeg: 3e-3, MinorDeg: 1e-3, PADeg: 20}
	e2 := Ellipse{MajorDeg: 2.5e-3, MinorDeg: 1.5e-3, PADeg: 130}

	ab, err := Common(e1, e2)
	if err != nil {
		t.Fatalf("Common(e1, e2) failed: %v", err)
	}
	ba, err := Common(e2, e1)
	if err != nil {
		t.Fatalf("Common(e2, e1) failed: %v", err)
	}

	if !almostEqual(ab.MajorDeg, ba.MajorDeg, 1e-9) ||
		!almostEqual(ab.MinorDeg, ba.MinorDeg, 1e-9) ||
		!almostEqual(math.Mod(ab.PADeg-ba.PADeg+360, 180), 0, 1e-6) &&
			!almostEqual(math.Mod(ab.PADeg-ba.PADeg+360, 180), 180, 1e-6) {
		t.Errorf("Common not symmetric: %+v vs %+v", ab, ba)
	}
}

func TestCommonContainsInputs(t *testing.T) {
	cases := []struct {
		name   string
		e1, e2 Ellipse
	}{
		{"rotated", Ellipse{3e-3, 1e-3, 20}, Ellipse{2.5e-3, 1.5e-3, 130}},
		{"near parallel", Ellipse{2e-3, 1e-3, 10}, Ellipse{2e-3, 1e-3, 15}},
		{"thin crossed", Ellipse{5e-3, 0.5e-3, 0}, Ellipse{5e-3, 0.5e-3, 60}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			common, err := Common(tc.e1, tc.e2)
			if err != nil {
				t.Fatalf("Common failed: %v", err)
			}
			// Allow a sliver of slack when checking containment: the clamp
			// construction is exact, the check is floating point.
			grown := Ellipse{
				MajorDeg: common.MajorDeg * (1 + 1e-9),
				MinorDeg: common.MinorDeg * (1 + 1e-9),
				PADeg:    common.PADeg,
			}
			for _, in := range []Ellipse{tc.e1, tc.e2} {
				ok, err := Contains(grown, in)
				if err != nil {
					t.Fatalf("Contains failed: %v", err)
				}
				if !ok {
					t.Errorf("common ellipse %+v does not contain input %+v", common, in)
				}
			}
		})
	}
}

func TestCommonDegenerate(t *testing.T) {
	_, err := Common(Ellipse{MajorDeg: 0, MinorDeg: 0, PADeg: 0},
		Ellipse{MajorDeg: 1e-3, MinorDeg: 1e-3, PADeg: 0})
	if err == nil {
		t.Error("expected error for zero-size ellipse")
	}
}
