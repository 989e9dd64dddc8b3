package analysis

import (
	"math"
	"math/cmplx"
)

func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

// PowerSpectrum zero-pads data to a power of two and returns the magnitude
// of each positive-frequency bin.
func PowerSpectrum(data []float64) []float64 {
	fft := FFT(PadPow2(data))
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// PadPow2 returns data extended with zeros to the next power of two.
func PadPow2(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n <<= 1
	}
	if n == len(data) {
		return data
	}
	out := make([]float64, n)
	copy(out, data)
	return out
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC bin
// of data sampled every dt seconds, or 0 when there is no signal.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 4 || dt <= 0 {
		return 0
	}

	ps := PowerSpectrum(data)
	best, bestPow := 0, 0.0
	for k := 1; k < len(ps); k++ {
		if ps[k] > bestPow {
			best, bestPow = k, ps[k]
		}
	}
	if best == 0 {
		return 0
	}

	n := len(ps) * 2
	return float64(best) / (float64(n) * dt)
}
