package fourier

import (
	"math"
	"math/cmplx"
)

// CausalData is a real discrete-time impulse response obtained from a
// sampled frequency response, together with the residual group delay Tau
// that had to be removed and the sample spacing Ts.
type CausalData struct {
	Tau  float64
	Ts   float64
	Data []float64
}

// tau root-finding parameters. The zero condition is evaluated on f0^2, so
// tauTol bounds |f0|^2.
const (
	tauTol     = 1e-7
	tauMaxIter = 30
	tauStep    = 1e-8
	imagTol    = 1e-5
)

// dephased returns F_i = (h_i - k) * exp(-j*2*pi*f_i*tau).
func dephased(freq []float64, data []complex128, tau, k float64, n int) complex128 {
	return (data[n] - complex(k, 0)) *
		cmplx.Exp(complex(0, -2*math.Pi*freq[n]*tau))
}

// dcValue is the constant k that makes the de-phased response real at the
// last frequency sample; it becomes the DC value of the causal response.
func dcValue(freq []float64, data []complex128, tau float64) float64 {
	last := data[len(data)-1]
	return real(last) - imag(last)/math.Tan(2*math.Pi*freq[len(freq)-1]*tau)
}

// zeroCondition is the weighted real part of the de-phased spectrum whose
// root in tau yields a numerically real response at the Nyquist sample.
func zeroCondition(freq []float64, data []complex128, tau float64) float64 {
	var sum complex128
	k := dcValue(freq, data, tau)
	for i := 1; i < len(freq)-1; i++ {
		sum += complex(2*real(dephased(freq, data, tau, k, i)), 0)
	}
	sum += dephased(freq, data, tau, k, 0)
	sum += complex(real(dephased(freq, data, tau, k, len(freq)-1)), 0)
	sum *= complex(1e3/float64(2*len(freq)-2), 0)
	return real(sum)
}

// groupDelay finds tau by Newton iteration with a finite-difference slope.
func groupDelay(freq []float64, data []complex128) float64 {
	guess := 1e-8
	for i := 0; i < tauMaxIter; i++ {
		f := zeroCondition(freq, data, guess)
		if f*f < tauTol {
			break
		}
		slope := (zeroCondition(freq, data, guess+tauStep) - f) / tauStep
		guess -= f / slope
	}
	return guess
}

// ForceCausal converts F equidistant frequency samples into a real causal
// impulse response of length 2F-2 sampled at Ts = 1/((2F-2)*df). When the
// last sample is already numerically real no de-phasing is required and
// Tau is zero.
func ForceCausal(freq []float64, data []complex128) CausalData {
	n := 2*len(freq) - 2
	out := CausalData{
		Ts:   1.0 / (float64(n) * (freq[1] - freq[0])),
		Data: make([]float64, n),
	}

	hermitian := make([]complex128, n)
	k := 0.0

	if math.Abs(imag(data[len(data)-1])) < imagTol {
		out.Tau = 0
		for i := 0; i < len(freq)-1; i++ {
			hermitian[i] = data[i]
		}
		for i := 1; i < len(freq); i++ {
			hermitian[n-i] = cmplx.Conj(data[i])
		}
	} else {
		out.Tau = groupDelay(freq, data)
		k = dcValue(freq, data, out.Tau)
		for i := 0; i < len(freq)-1; i++ {
			hermitian[i] = dephased(freq, data, out.Tau, k, i)
		}
		for i := 1; i < len(freq); i++ {
			hermitian[n-i] = cmplx.Conj(dephased(freq, data, out.Tau, k, i))
		}
	}

	impulse := IDFT(hermitian)
	for i := range impulse {
		out.Data[i] = real(impulse[i])
	}

	if math.Abs(imag(data[len(data)-1])) >= imagTol {
		out.Data[0] = k
	}
	return out
}
