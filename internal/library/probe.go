package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"

	"github.com/murexstreams/murex/internal/errors"
)

// Probe is the fully decoded shape of an audio file.
type Probe struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	// PCM holds interleaved 16-bit samples for analysis.
	PCM []int16
}

// SupportedExt reports whether a path names an importable audio format.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".flac", ".ogg", ".oga":
		return true
	}
	return false
}

// ProbeFile decodes an audio file into PCM for the import pipeline.
func ProbeFile(path string) (*Probe, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return probeWAV(path)
	case ".mp3", ".flac", ".ogg", ".oga":
		return probeBeep(path)
	default:
		return nil, fmt.Errorf("probing %s: %w", filepath.Base(path), errors.ErrUnsupportedFormat)
	}
}

func probeWAV(path string) (*Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav %s: %w", filepath.Base(path), err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("decoding wav %s: %w", filepath.Base(path), errors.ErrUnsupportedFormat)
	}

	pcm := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = int16(v)
	}

	channels := buf.Format.NumChannels
	frames := len(pcm) / channels
	return &Probe{
		Duration:   time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate),
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		PCM:        pcm,
	}, nil
}

func probeBeep(path string) (*Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	defer streamer.Close()

	total := streamer.Len()
	pcm := make([]int16, 0, total*2)
	buf := make([][2]float64, 2048)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			pcm = append(pcm, sampleToInt16(buf[i][0]), sampleToInt16(buf[i][1]))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	return &Probe{
		Duration:   format.SampleRate.D(total),
		SampleRate: int(format.SampleRate),
		Channels:   2,
		PCM:        pcm,
	}, nil
}

func sampleToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
