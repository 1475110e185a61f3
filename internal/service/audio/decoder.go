// Package audio converts uploaded audio into the canonical waveform the
// recognizer expects and reports its duration.
package audio

import (
	"context"
	"os"
	"time"
)

// Waveform is a decoded mono PCM WAV file on disk.
type Waveform struct {
	Path         string
	Duration     time.Duration
	SampleRateHz int

	// Temporary marks files created by a Decoder; Release removes them.
	Temporary bool
}

// DurationMinutes returns the length of the audio in minutes.
func (w Waveform) DurationMinutes() float64 {
	return w.Duration.Minutes()
}

// Release removes the file if the decoder created it.
func (w Waveform) Release() error {
	if !w.Temporary || w.Path == "" {
		return nil
	}
	if err := os.Remove(w.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Decoder turns an arbitrary audio file into a Waveform.
type Decoder interface {
	Decode(ctx context.Context, srcPath string) (Waveform, error)
}

// FileDecoder accepts files that already are PCM WAV and only reads their duration.
type FileDecoder struct{}

// Decode implements Decoder.
func (FileDecoder) Decode(_ context.Context, srcPath string) (Waveform, error) {
	info, err := ReadWAVInfo(srcPath)
	if err != nil {
		return Waveform{}, err
	}
	return Waveform{
		Path:         srcPath,
		Duration:     info.Duration(),
		SampleRateHz: info.SampleRateHz,
	}, nil
}
