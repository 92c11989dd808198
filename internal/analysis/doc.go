// Package analysis provides frequency analysis of recorded series.
//
// The package characterizes periodic motion in a saved run:
//
//   - [FFT]: radix-2 fast Fourier transform
//   - [PowerSpectrum]: spectral magnitudes of a real series
//   - [DominantFrequency]: strongest oscillation in a sampled signal
//
// # Beat Detection
//
// Undulatory swimmers oscillate at their muscle activation period, so
// the dominant frequency of the center-of-mass speed recovers the beat:
//
//	freq, power := analysis.DominantFrequency(speeds, sampleRate)
package analysis
