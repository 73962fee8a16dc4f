package matrix

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomMatrix(rng *rand.Rand, n int) *Matrix[float64] {
	m := New[float64](n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
		// diagonal dominance keeps the test matrices well conditioned
		m.Add(i, i, float64(n))
	}
	return m
}

func permute(p []int, b *Matrix[float64]) *Matrix[float64] {
	out := New[float64](b.Rows(), b.Cols())
	for i, src := range p {
		for j := 0; j < b.Cols(); j++ {
			out.Set(i, j, b.At(src, j))
		}
	}
	return out
}

func TestLUReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 3, 5, 8, 20} {
		a := randomMatrix(rng, n)
		lu := NewLUPair[float64](n)
		require.NoError(t, a.LU(lu))

		pa := permute(lu.P, a)
		recon := lu.L.Mul(lu.U)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				require.InDelta(t, pa.At(i, j), recon.At(i, j), 1e-10,
					"P*A != L*U at (%d,%d) for n=%d", i, j, n)
			}
		}
	}
}

func TestLUTriangularShape(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := randomMatrix(rng, 6)
	lu := NewLUPair[float64](6)
	require.NoError(t, a.LU(lu))

	for i := 0; i < 6; i++ {
		require.Equal(t, 1.0, lu.L.At(i, i))
		for j := i + 1; j < 6; j++ {
			require.Zero(t, lu.L.At(i, j), "L not lower triangular")
		}
		for j := 0; j < i; j++ {
			require.InDelta(t, 0.0, lu.U.At(i, j), 1e-12, "U not upper triangular")
		}
	}
}

func TestLeftDivideInverseLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(12)
		a := randomMatrix(rng, n)
		b := New[float64](n, 1)
		for i := 0; i < n; i++ {
			b.Set(i, 0, rng.NormFloat64())
		}

		x, err := a.Solve(b)
		require.NoError(t, err)

		ax := a.Mul(x)
		for i := 0; i < n; i++ {
			require.InDelta(t, b.At(i, 0), ax.At(i, 0), 1e-10)
		}
	}
}

func TestLUSingular(t *testing.T) {
	a := New[float64](3, 3)
	a.Set(0, 0, 1)
	a.Set(0, 1, 2)
	a.Set(0, 2, 3)
	a.Set(1, 0, 2)
	a.Set(1, 1, 4)
	a.Set(1, 2, 6)
	a.Set(2, 0, 1)
	a.Set(2, 1, 1)
	a.Set(2, 2, 1)

	lu := NewLUPair[float64](3)
	err := a.LU(lu)
	require.ErrorIs(t, err, ErrSingular)
}

func TestLUNotSquare(t *testing.T) {
	a := New[float64](2, 3)
	lu := NewLUPair[float64](2)
	require.Error(t, a.LU(lu))
}

func TestComplexPivotUsesModulus(t *testing.T) {
	// |3+4i| = 5 beats |-4| = 4, so row 1 must be chosen as the pivot row
	a := New[complex128](2, 2)
	a.Set(0, 0, complex(-4, 0))
	a.Set(0, 1, complex(1, 0))
	a.Set(1, 0, complex(3, 4))
	a.Set(1, 1, complex(2, 0))

	lu := NewLUPair[complex128](2)
	require.NoError(t, a.LU(lu))
	require.Equal(t, []int{1, 0}, lu.P)
	require.Equal(t, complex(3, 4), lu.U.At(0, 0))
}

func TestComplexSolve(t *testing.T) {
	a := New[complex128](2, 2)
	a.Set(0, 0, complex(1, 1))
	a.Set(0, 1, complex(2, 0))
	a.Set(1, 0, complex(0, -1))
	a.Set(1, 1, complex(1, 0))

	want := []complex128{complex(1, -1), complex(2, 3)}
	b := New[complex128](2, 1)
	for i := 0; i < 2; i++ {
		b.Set(i, 0, a.At(i, 0)*want[0]+a.At(i, 1)*want[1])
	}

	x, err := a.Solve(b)
	require.NoError(t, err)
	for i := range want {
		require.InDelta(t, real(want[i]), real(x.At(i, 0)), 1e-12)
		require.InDelta(t, imag(want[i]), imag(x.At(i, 0)), 1e-12)
	}
}

func TestRowOps(t *testing.T) {
	m := New[float64](2, 3)
	for j := 0; j < 3; j++ {
		m.Set(0, j, float64(j+1))
		m.Set(1, j, float64(10*(j+1)))
	}

	m.SwapRows(0, 1)
	require.Equal(t, 10.0, m.At(0, 0))
	require.Equal(t, 1.0, m.At(1, 0))

	m.RowAddition(1, 0, 0.5)
	require.Equal(t, 6.0, m.At(1, 0))
	require.Equal(t, 12.0, m.At(1, 1))
}

func TestModulus(t *testing.T) {
	require.Equal(t, 2.5, Modulus(-2.5))
	require.InDelta(t, 5.0, Modulus(complex(3, -4)), 1e-15)
}
