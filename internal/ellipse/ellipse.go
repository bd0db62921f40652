// Package ellipse computes the smallest ellipse enclosing two source
// footprints, used to represent the combined extent of two detections
// merged into a single catalog entry.
package ellipse

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/skymap-data/sourcecat/internal/units"
)

// psdTolerance absorbs floating-point noise in the containment test.
// Eigenvalue differences below this fraction of the matrix scale are
// treated as zero.
const psdTolerance = 1e-12

// Ellipse is an elliptical source footprint. Axes are full widths
// (FWHM-style), the position angle is measured counterclockwise from the
// x-axis. All fields are in degrees.
type Ellipse struct {
	MajorDeg float64
	MinorDeg float64
	PADeg    float64
}

// New builds an Ellipse from unit-tagged axis and angle values, checking
// each against degrees in strict mode.
func New(major, minor, pa units.Value) (Ellipse, error) {
	mj, err := units.Check(major, units.Degree, units.Strict)
	if err != nil {
		return Ellipse{}, fmt.Errorf("major axis: %w", err)
	}
	mn, err := units.Check(minor, units.Degree, units.Strict)
	if err != nil {
		return Ellipse{}, fmt.Errorf("minor axis: %w", err)
	}
	p, err := units.Check(pa, units.Degree, units.Strict)
	if err != nil {
		return Ellipse{}, fmt.Errorf("position angle: %w", err)
	}
	return Ellipse{MajorDeg: mj.Scalar, MinorDeg: mn.Scalar, PADeg: p.Scalar}, nil
}

// shapeMatrix returns the 2x2 positive-definite shape matrix of e with
// semi-axes expressed in arcseconds: Q = R diag(a², b²) Rᵀ. Containment
// of concentric ellipses is the Loewner order on these matrices.
func shapeMatrix(e Ellipse) (*mat.SymDense, error) {
	majArcsec, err := units.Convert(e.MajorDeg, units.Degree, units.Arcsec)
	if err != nil {
		return nil, err
	}
	minArcsec, err := units.Convert(e.MinorDeg, units.Degree, units.Arcsec)
	if err != nil {
		return nil, err
	}
	a := majArcsec / 2
	b := minArcsec / 2
	if a <= 0 || b <= 0 {
		return nil, fmt.Errorf("degenerate ellipse: major=%v deg minor=%v deg", e.MajorDeg, e.MinorDeg)
	}
	theta := e.PADeg * math.Pi / 180
	c := math.Cos(theta)
	s := math.Sin(theta)
	q := mat.NewSymDense(2, []float64{
		a*a*c*c + b*b*s*s, (a*a - b*b) * c * s,
		(a*a - b*b) * c * s, a*a*s*s + b*b*c*c,
	})
	return q, nil
}

// fromShapeMatrix recovers (major, minor, pa) in degrees from a shape
// matrix in arcsec². The position angle is normalized to [0, 180).
func fromShapeMatrix(q *mat.SymDense) (Ellipse, error) {
	var eig mat.EigenSym
	if !eig.Factorize(q, true) {
		return Ellipse{}, fmt.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// EigenSym returns values in ascending order: index 1 is the major axis.
	if vals[0] < 0 {
		vals[0] = 0
	}
	a := math.Sqrt(vals[1])
	b := math.Sqrt(vals[0])
	pa := math.Atan2(vecs.At(1, 1), vecs.At(0, 1)) * 180 / math.Pi
	for pa < 0 {
		pa += 180
	}
	for pa >= 180 {
		pa -= 180
	}

	majDeg, err := units.Convert(2*a, units.Arcsec, units.Degree)
	if err != nil {
		return Ellipse{}, err
	}
	minDeg, err := units.Convert(2*b, units.Arcsec, units.Degree)
	if err != nil {
		return Ellipse{}, err
	}
	return Ellipse{MajorDeg: majDeg, MinorDeg: minDeg, PADeg: pa}, nil
}

// contains reports whether the ellipse with shape matrix q1 contains the
// one with shape matrix q2, i.e. q1 - q2 is positive semi-definite.
func contains(q1, q2 *mat.SymDense) bool {
	d00 := q1.At(0, 0) - q2.At(0, 0)
	d01 := q1.At(0, 1) - q2.At(0, 1)
	d11 := q1.At(1, 1) - q2.At(1, 1)
	scale := math.Max(q1.At(0, 0)+q1.At(1, 1), q2.At(0, 0)+q2.At(1, 1))
	tol := psdTolerance * scale
	// A symmetric 2x2 matrix is PSD iff trace >= 0 and det >= 0.
	return d00+d11 >= -tol && d00*d11-d01*d01 >= -tol*tol-tol*scale
}

// Common computes the minimal ellipse enclosing both e1 and e2, in the
// common-beam sense: the smallest-area shape matrix Q with Q >= Q1 and
// Q >= Q2 in the Loewner order. The computation whitens by Q1, clamps the
// eigenvalues of the whitened Q2 up to one, and transforms back. The
// result is symmetric under argument order up to floating-point noise.
func Common(e1, e2 Ellipse) (Ellipse, error) {
	q1, err := shapeMatrix(e1)
	if err != nil {
		return Ellipse{}, err
	}
	q2, err := shapeMatrix(e2)
	if err != nil {
		return Ellipse{}, err
	}

	// Fast path: one footprint already contains the other.
	if contains(q1, q2) {
		return e1, nil
	}
	if contains(q2, q1) {
		return e2, nil
	}

	var chol mat.Cholesky
	if !chol.Factorize(q1) {
		return Ellipse{}, fmt.Errorf("shape matrix not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	var lInv mat.Dense
	if err := lInv.Inverse(&l); err != nil {
		return Ellipse{}, fmt.Errorf("whitening failed: %w", err)
	}

	// M = L⁻¹ Q2 L⁻ᵀ, the second ellipse in the frame where the first is
	// the unit circle.
	var tmp, m mat.Dense
	tmp.Mul(&lInv, q2)
	m.Mul(&tmp, lInv.T())
	mSym := mat.NewSymDense(2, []float64{
		m.At(0, 0), (m.At(0, 1) + m.At(1, 0)) / 2,
		(m.At(0, 1) + m.At(1, 0)) / 2, m.At(1, 1),
	})

	var eig mat.EigenSym
	if !eig.Factorize(mSym, true) {
		return Ellipse{}, fmt.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Clamp eigenvalues below one up to one: in the whitened frame the
	// join of the unit circle and diag(λ1, λ2) is diag(max(λ1,1), max(λ2,1)).
	for i := range vals {
		if vals[i] < 1 {
			vals[i] = 1
		}
	}

	lam := mat.NewDiagDense(2, vals)
	var join, back mat.Dense
	tmp.Mul(&vecs, lam)
	join.Mul(&tmp, vecs.T())
	tmp.Mul(&l, &join)
	back.Mul(&tmp, l.T())

	qOut := mat.NewSymDense(2, []float64{
		back.At(0, 0), (back.At(0, 1) + back.At(1, 0)) / 2,
		(back.At(0, 1) + back.At(1, 0)) / 2, back.At(1, 1),
	})
	return fromShapeMatrix(qOut)
}

// Contains reports whether e1 fully contains e2 when both are centered at
// the same point.
func Contains(e1, e2 Ellipse) (bool, error) {
	q1, err := shapeMatrix(e1)
	if err != nil {
		return false, err
	}
	q2, err := shapeMatrix(e2)
	if err != nil {
		return false, err
	}
	return contains(q1, q2), nil
}
