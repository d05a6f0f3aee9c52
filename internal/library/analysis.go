package library

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	energyFFTSize = 1024
	energyWindows = 32
	// Bins below this index are bass and rumble; the score measures
	// how much of the spectrum sits above them.
	energyLowBin = 16
)

// EnergyScore rates the brightness of a track in 0..1 by sampling FFT
// windows across the PCM and measuring how much spectral magnitude
// falls above the low bins. Silence scores 0.
func EnergyScore(pcm []int16) float64 {
	if len(pcm) < energyFFTSize {
		return 0
	}

	windows := energyWindows
	stride := (len(pcm) - energyFFTSize) / windows
	if stride <= 0 {
		windows = 1
		stride = 1
	}

	var total, high float64
	for w := 0; w < windows; w++ {
		start := w * stride
		window := make([]float64, energyFFTSize)
		for i := range window {
			window[i] = float64(pcm[start+i])
		}

		coeffs := fft.FFTReal(window)
		for bin := 1; bin < energyFFTSize/2; bin++ {
			mag := math.Hypot(real(coeffs[bin]), imag(coeffs[bin]))
			total += mag
			if bin >= energyLowBin {
				high += mag
			}
		}
	}

	if total == 0 {
		return 0
	}
	return high / total
}
