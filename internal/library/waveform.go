package library

import "math"

// waveformPoints is the preview resolution stored per track. The TUI
// full player renders it scaled to the panel width.
const waveformPoints = 1000

// waveformGain lifts quiet material into the visible range before
// clipping at 255.
const waveformGain = 5.0

// WaveformPreview reduces interleaved PCM to a fixed-resolution
// amplitude preview. Each byte is the RMS of one block of samples,
// scaled to 0-255.
func WaveformPreview(pcm []int16) []byte {
	if len(pcm) == 0 {
		return nil
	}

	step := len(pcm) / waveformPoints
	if step == 0 {
		step = 1
	}

	preview := make([]byte, 0, waveformPoints)
	for start := 0; start < len(pcm); start += step {
		end := start + step
		if end > len(pcm) {
			end = len(pcm)
		}

		var sum float64
		for _, s := range pcm[start:end] {
			v := float64(s)
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(end-start))

		scaled := rms / 32768.0 * 255.0 * waveformGain
		if scaled > 255 {
			scaled = 255
		}
		preview = append(preview, byte(scaled))
	}
	return preview
}
