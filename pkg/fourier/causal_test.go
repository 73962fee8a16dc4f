package fourier

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"
)

// A frequency response that is real everywhere is already phase consistent:
// the enforcer must skip root-finding and report zero delay.
func TestForceCausalRealResponseSkipsDelay(t *testing.T) {
	const f = 9
	freq := make([]float64, f)
	data := make([]complex128, f)
	for i := range freq {
		freq[i] = float64(i) * 1e9
		data[i] = complex(1, 0)
	}

	causal := ForceCausal(freq, data)
	require.Zero(t, causal.Tau)
	require.Len(t, causal.Data, 2*f-2)
	require.InDelta(t, 1.0/(float64(2*f-2)*1e9), causal.Ts, 1e-20)

	// flat unity spectrum -> unit impulse at n=0
	require.InDelta(t, 1.0, causal.Data[0], 1e-9)
	for i := 1; i < len(causal.Data); i++ {
		require.InDelta(t, 0.0, causal.Data[i], 1e-9)
	}
}

// The DC constant k is built so the de-phased response is real at the last
// frequency sample for any tau; verify the identity at several delays.
func TestDephasedRealAtNyquist(t *testing.T) {
	const f = 17
	freq := make([]float64, f)
	data := make([]complex128, f)
	for i := range freq {
		freq[i] = float64(i+1) * 1e8
		data[i] = cmplx.Exp(complex(0, -2*math.Pi*freq[i]*0.3e-9))
	}

	for _, tau := range []float64{1e-10, 3.7e-10, 2e-9} {
		k := dcValue(freq, data, tau)
		last := dephased(freq, data, tau, k, f-1)
		require.InDelta(t, 0.0, imag(last), 1e-9)
	}
}

// A pure delay whose last sample has a significant imaginary part takes the
// de-phasing branch: the impulse response starts at the DC constant k and
// stays finite.
func TestForceCausalDephasingBranch(t *testing.T) {
	const (
		f  = 33
		df = 0.5e9
		t0 = 0.8e-9
	)
	freq := make([]float64, f)
	data := make([]complex128, f)
	for i := range freq {
		freq[i] = float64(i) * df
		data[i] = cmplx.Exp(complex(0, -2*math.Pi*freq[i]*t0))
	}
	require.Greater(t, math.Abs(imag(data[f-1])), imagTol)

	causal := ForceCausal(freq, data)
	require.Len(t, causal.Data, 2*f-2)
	require.Equal(t, dcValue(freq, data, causal.Tau), causal.Data[0])
	for i, v := range causal.Data {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "entry %d", i)
	}
}
