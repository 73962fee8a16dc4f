package matrix

import "fmt"

// pivotEps marks a pivot as numerically zero after partial pivoting. The
// pivot is already the column maximum, so an absolute threshold suffices.
const pivotEps = 1e-250

// LUPair holds the factorization P*A = L*U. L is unit lower triangular,
// U upper triangular, P the row permutation recorded in P[i].
type LUPair[T Value] struct {
	L *Matrix[T]
	U *Matrix[T]
	P []int
}

func NewLUPair[T Value](n int) *LUPair[T] {
	return &LUPair[T]{
		L: New[T](n, n),
		U: New[T](n, n),
		P: make([]int, n),
	}
}

// LU factors m into dest using Doolittle elimination with partial pivoting.
// dest must be preallocated to the matrix size; it is reused across
// Newton-Raphson iterations without reallocation.
func (m *Matrix[T]) LU(dest *LUPair[T]) error {
	if m.rows != m.cols {
		return fmt.Errorf("matrix: LU requires square matrix, got %dx%d", m.rows, m.cols)
	}
	n := m.rows

	dest.U.CopyFrom(m)
	dest.L.Fill(0)
	for i := 0; i < n; i++ {
		dest.L.Set(i, i, 1)
		dest.P[i] = i
	}

	for r := 0; r < n; r++ {
		// largest modulus in column r, ties to the lowest row
		largest := r
		maxV := Modulus(dest.U.At(r, r))
		for r2 := r + 1; r2 < n; r2++ {
			if v := Modulus(dest.U.At(r2, r)); v > maxV {
				maxV = v
				largest = r2
			}
		}
		if maxV < pivotEps {
			return fmt.Errorf("%w: zero pivot in column %d", ErrSingular, r)
		}

		dest.U.SwapRows(r, largest)
		dest.P[r], dest.P[largest] = dest.P[largest], dest.P[r]
		// swap the already-filled subdiagonal of L
		for c := 0; c < r; c++ {
			lr, ll := dest.L.At(r, c), dest.L.At(largest, c)
			dest.L.Set(r, c, ll)
			dest.L.Set(largest, c, lr)
		}

		pivot := dest.U.At(r, r)
		for row := r + 1; row < n; row++ {
			mult := dest.U.At(row, r) / pivot
			dest.U.RowAddition(row, r, -mult)
			dest.L.Set(row, r, mult)
		}
	}

	return nil
}

// LeftDivide solves m*x = b given the factorization lu of m, i.e. x = m \ b.
// scratch and dest are caller-provided n x 1 column vectors so the transient
// loop can reuse them on every solve.
func (m *Matrix[T]) LeftDivide(b *Matrix[T], lu *LUPair[T], scratch, dest *Matrix[T]) {
	n := m.rows

	// forward substitution: L*y = P*b, y into scratch
	for i := 0; i < n; i++ {
		val := b.At(lu.P[i], 0)
		for j := 0; j < i; j++ {
			val -= scratch.At(j, 0) * lu.L.At(i, j)
		}
		scratch.Set(i, 0, val)
	}

	// back substitution: U*x = y, x into dest
	for i := n - 1; i >= 0; i-- {
		val := scratch.At(i, 0)
		for j := i + 1; j < n; j++ {
			val -= dest.At(j, 0) * lu.U.At(i, j)
		}
		dest.Set(i, 0, val/lu.U.At(i, i))
	}
}

// Solve is the one-shot convenience form of LeftDivide, allocating the
// factorization and work buffers itself.
func (m *Matrix[T]) Solve(b *Matrix[T]) (*Matrix[T], error) {
	lu := NewLUPair[T](m.rows)
	if err := m.LU(lu); err != nil {
		return nil, err
	}
	scratch := New[T](m.rows, 1)
	dest := New[T](m.rows, 1)
	m.LeftDivide(b, lu, scratch, dest)
	return dest, nil
}
