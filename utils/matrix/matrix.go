// Package matrix is the dense linear algebra kernel used by the differential IK solver.
// Every function allocates its result; arguments are never mutated, so calls are safe
// from any goroutine without synchronization.
package matrix

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SingularEpsilon is the smallest pivot magnitude Inverse will divide by.
const SingularEpsilon = 1e-10

var (
	// ErrDimensionMismatch is returned when operand shapes are incompatible for an operation.
	ErrDimensionMismatch = errors.New("matrix dimension mismatch")

	// ErrSingularMatrix is returned by Inverse when elimination meets a pivot below SingularEpsilon.
	ErrSingularMatrix = errors.New("matrix is singular")
)

// Create returns a zero-filled rows x cols matrix.
func Create(rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrDimensionMismatch, "cannot create %dx%d matrix", rows, cols)
	}
	return mat.NewDense(rows, cols, nil), nil
}

// FromRows builds a matrix from a slice of rows. All rows must be non-empty and of equal length.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(ErrDimensionMismatch, "matrix has no elements")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Wrapf(ErrDimensionMismatch, "row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// ToRows copies m into a slice of rows.
func ToRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, m)
	}
	return rows
}

// Identity returns the n x n identity matrix.
func Identity(n int) (*mat.Dense, error) {
	id, err := Create(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id, nil
}

// Transpose returns a new matrix with the rows and columns of m swapped.
func Transpose(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m.T())
}

// Product returns a*b.
func Product(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, errors.Wrapf(ErrDimensionMismatch, "cannot multiply %dx%d by %dx%d", ar, ac, br, bc)
	}
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out, nil
}

// MatrixVectorProduct returns m*v.
func MatrixVectorProduct(m mat.Matrix, v []float64) ([]float64, error) {
	r, c := m.Dims()
	if len(v) != c {
		return nil, errors.Wrapf(ErrDimensionMismatch, "cannot multiply %dx%d by vector of length %d", r, c, len(v))
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(m, mat.NewVecDense(c, append([]float64(nil), v...)))
	return mat.Col(nil, 0, out), nil
}

// Inverse inverts a square matrix by Gauss-Jordan elimination with partial pivoting.
// ErrSingularMatrix is returned as soon as the best available pivot falls below SingularEpsilon.
func Inverse(m mat.Matrix) (*mat.Dense, error) {
	n, c := m.Dims()
	if n != c {
		return nil, errors.Wrapf(ErrDimensionMismatch, "cannot invert non-square %dx%d matrix", n, c)
	}

	// Augment [m | I] and reduce the left half to the identity.
	work := mat.NewDense(n, 2*n, nil)
	work.Slice(0, n, 0, n).(*mat.Dense).Copy(m)
	for i := 0; i < n; i++ {
		work.Set(i, n+i, 1)
	}

	swap := make([]float64, 2*n)
	for col := 0; col < n; col++ {
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(work.At(r, col)) > math.Abs(work.At(pivotRow, col)) {
				pivotRow = r
			}
		}
		pivot := work.At(pivotRow, col)
		if math.Abs(pivot) < SingularEpsilon {
			return nil, errors.Wrapf(ErrSingularMatrix, "pivot %g in column %d", pivot, col)
		}

		row := work.RawRowView(col)
		if pivotRow != col {
			other := work.RawRowView(pivotRow)
			copy(swap, row)
			copy(row, other)
			copy(other, swap)
		}
		floats.Scale(1/pivot, row)

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			if f := work.At(r, col); f != 0 {
				floats.AddScaled(work.RawRowView(r), -f, row)
			}
		}
	}

	return mat.DenseCopyOf(work.Slice(0, n, n, 2*n)), nil
}

// DampedPseudoInverse returns the right pseudo-inverse jᵗ(j·jᵗ + λ²I)⁻¹ of a wide matrix j.
// A lambda of zero gives the undamped form, which fails with ErrSingularMatrix when j·jᵗ is singular.
func DampedPseudoInverse(j mat.Matrix, lambda float64) (*mat.Dense, error) {
	jt := Transpose(j)
	jjt, err := Product(j, jt)
	if err != nil {
		return nil, err
	}
	if lambda != 0 {
		r, _ := jjt.Dims()
		for i := 0; i < r; i++ {
			jjt.Set(i, i, jjt.At(i, i)+lambda*lambda)
		}
	}
	inv, err := Inverse(jjt)
	if err != nil {
		return nil, err
	}
	return Product(jt, inv)
}

// AlmostEqual reports whether a and b have the same shape and all elements within epsilon.
func AlmostEqual(a, b mat.Matrix, epsilon float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	return mat.EqualApprox(a, b, epsilon)
}
