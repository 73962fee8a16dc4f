package matrix

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Value is the set of scalar types the solver operates on. The transient
// engine stamps and solves real matrices; complex matrices go through the
// same LU and solve code with modulus pivoting.
type Value interface {
	~float64 | ~complex128
}

// ErrSingular is returned when factorization meets a zero (or effectively
// zero) pivot after partial pivoting.
var ErrSingular = errors.New("matrix: singular matrix")

// Matrix is a dense row-major MxN buffer.
type Matrix[T Value] struct {
	data []T
	rows int
	cols int
}

func New[T Value](rows, cols int) *Matrix[T] {
	return &Matrix[T]{
		data: make([]T, rows*cols),
		rows: rows,
		cols: cols,
	}
}

func NewFilled[T Value](rows, cols int, v T) *Matrix[T] {
	m := New[T](rows, cols)
	m.Fill(v)
	return m
}

func (m *Matrix[T]) Rows() int { return m.rows }
func (m *Matrix[T]) Cols() int { return m.cols }

func (m *Matrix[T]) At(i, j int) T {
	m.checkIndex(i, j)
	return m.data[i*m.cols+j]
}

func (m *Matrix[T]) Set(i, j int, v T) {
	m.checkIndex(i, j)
	m.data[i*m.cols+j] = v
}

// Add accumulates v into entry (i, j). Stamping is strictly additive, so
// this is the accessor elements use.
func (m *Matrix[T]) Add(i, j int, v T) {
	m.checkIndex(i, j)
	m.data[i*m.cols+j] += v
}

func (m *Matrix[T]) checkIndex(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of bounds for %dx%d", i, j, m.rows, m.cols))
	}
}

func (m *Matrix[T]) Fill(v T) {
	for i := range m.data {
		m.data[i] = v
	}
}

// CopyFrom overwrites m with src. Dimensions must match.
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) {
	if m.rows != src.rows || m.cols != src.cols {
		panic(fmt.Sprintf("matrix: copy dimension mismatch %dx%d vs %dx%d", m.rows, m.cols, src.rows, src.cols))
	}
	copy(m.data, src.data)
}

func (m *Matrix[T]) Clone() *Matrix[T] {
	out := New[T](m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

func (m *Matrix[T]) SwapRows(r1, r2 int) {
	if r1 == r2 {
		return
	}
	a := m.data[r1*m.cols : (r1+1)*m.cols]
	b := m.data[r2*m.cols : (r2+1)*m.cols]
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
}

// RowAddition adds k times row src to row dst.
func (m *Matrix[T]) RowAddition(dst, src int, k T) {
	d := m.data[dst*m.cols : (dst+1)*m.cols]
	s := m.data[src*m.cols : (src+1)*m.cols]
	for i := range d {
		d[i] += k * s[i]
	}
}

// AddTo accumulates rhs into m elementwise.
func (m *Matrix[T]) AddTo(rhs *Matrix[T]) {
	for i := range m.data {
		m.data[i] += rhs.data[i]
	}
}

func (m *Matrix[T]) Mul(rhs *Matrix[T]) *Matrix[T] {
	if m.cols != rhs.rows {
		panic("matrix: multiply dimension mismatch")
	}
	out := New[T](m.rows, rhs.cols)
	// i-k-j ordering (j innermost) keeps both operands streaming over
	// contiguous rows
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			v := m.data[i*m.cols+k]
			if v == 0 {
				continue
			}
			for j := 0; j < rhs.cols; j++ {
				out.data[i*out.cols+j] += v * rhs.data[k*rhs.cols+j]
			}
		}
	}
	return out
}

func (m *Matrix[T]) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&sb, "%10.4g ", m.data[i*m.cols+j])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Modulus is the pivot-selection magnitude: |x| for reals, |z| for complex.
// LU ordering comparisons go through here and nowhere else.
func Modulus[T Value](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return math.Abs(x)
	case complex128:
		return cmplx.Abs(x)
	}
	return 0
}
