// Package fourier provides the discrete Fourier transforms and the causal
// impulse-response construction used by the S-parameter preprocessing.
package fourier

import (
	"math"
	"math/cmplx"
)

// NthRootOfUnity returns exp(-2*pi*i * num/den).
func NthRootOfUnity(num, den int) complex128 {
	return cmplx.Exp(complex(0, -2*math.Pi*float64(num)/float64(den)))
}

// DFT computes the discrete Fourier transform of a real sequence.
func DFT(x []float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			out[k] += complex(x[i], 0) * NthRootOfUnity(k*i, n)
		}
	}
	return out
}

// IDFT computes the inverse discrete Fourier transform. The input length is
// arbitrary; the causality enforcer feeds it Hermitian spectra of length
// 2F-2, which is rarely a power of two.
func IDFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			out[i] += x[k] * NthRootOfUnity(-k*i, n)
		}
		out[i] /= complex(float64(n), 0)
	}
	return out
}

// FFT computes the transform of a real sequence whose length is a power of
// two, by radix-2 decimation in time.
func FFT(x []float64) []complex128 {
	checkPowerOfTwo(len(x))
	data := make([]complex128, len(x))
	for i, v := range x {
		data[i] = complex(v, 0)
	}
	if len(x) == 1 {
		return data
	}
	result := make([]complex128, len(x))
	scratch := make([]complex128, len(x))
	fftRadix2(data, result, scratch, 0, 0, 1)
	return result
}

// IFFT inverts FFT; the length must be a power of two.
func IFFT(x []complex128) []complex128 {
	checkPowerOfTwo(len(x))
	if len(x) == 1 {
		return []complex128{x[0]}
	}
	result := make([]complex128, len(x))
	scratch := make([]complex128, len(x))
	fftRadix2(x, result, scratch, 0, 0, -1)
	scale := complex(float64(len(x)), 0)
	for i := range result {
		result[i] /= scale
	}
	return result
}

func checkPowerOfTwo(n int) {
	if n == 0 || n&(n-1) != 0 {
		panic("fourier: FFT length must be a power of two")
	}
}

// fftRadix2 fills result[0:len>>stride] with the transform of the elements
// input[offset], input[offset+2^stride], ... using scratch of the same span.
func fftRadix2(input, result, scratch []complex128, offset, stride, dir int) {
	l := len(input) >> stride
	if l > 2 {
		fftRadix2(input, scratch, result, offset, stride+1, dir)
		fftRadix2(input, scratch[l/2:], result[l/2:], offset+(1<<stride), stride+1, dir)
		for i := 0; i < l/2; i++ {
			w := NthRootOfUnity(dir*i, l)
			result[i] = scratch[i] + w*scratch[i+l/2]
			result[i+l/2] = scratch[i] - w*scratch[i+l/2]
		}
		return
	}
	result[0] = input[offset] + input[offset+(1<<stride)]
	result[1] = input[offset] - input[offset+(1<<stride)]
}
