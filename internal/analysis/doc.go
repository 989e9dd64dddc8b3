// Package analysis provides spectral tools for uniformly sampled signals.
//
//   - [FFT]: radix-2 Cooley-Tukey transform
//   - [PowerSpectrum]: magnitude of the positive-frequency half
//   - [DominantFrequency]: strongest non-DC frequency of a signal
//
// The floor velocity of a kicked run is close to a square wave whose
// period is two pulse intervals, so its dominant frequency recovers the
// shaking rate:
//
//	f := analysis.DominantFrequency(velocities, dt)
//	// f ≈ 1 / (2 * pulse_interval)
package analysis
