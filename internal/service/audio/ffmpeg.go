package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"speech-analytics-service/internal/observability/metrics"
)

// FFmpegConfig holds ffmpeg decoder settings.
type FFmpegConfig struct {
	BinaryPath   string
	SampleRateHz int
	WorkDir      string
}

// DefaultFFmpegConfig returns the settings used when nothing is configured.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		BinaryPath:   "ffmpeg",
		SampleRateHz: 16000,
		WorkDir:      os.TempDir(),
	}
}

// FFmpegDecoder converts any input ffmpeg understands to mono 16-bit PCM WAV.
type FFmpegDecoder struct {
	cfg     FFmpegConfig
	metrics *metrics.Metrics
}

// NewFFmpegDecoder creates a decoder. Zero fields in cfg take their defaults.
func NewFFmpegDecoder(cfg FFmpegConfig, m *metrics.Metrics) *FFmpegDecoder {
	def := DefaultFFmpegConfig()
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = def.BinaryPath
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = def.SampleRateHz
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = def.WorkDir
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &FFmpegDecoder{cfg: cfg, metrics: m}
}

// Decode runs ffmpeg on srcPath and writes the result to a unique file in the work dir.
func (d *FFmpegDecoder) Decode(ctx context.Context, srcPath string) (Waveform, error) {
	start := time.Now()

	out, err := os.CreateTemp(d.cfg.WorkDir, "converted-*.wav")
	if err != nil {
		return Waveform{}, fmt.Errorf("create waveform file: %w", err)
	}
	outPath := out.Name()
	out.Close()

	// ffmpeg -y -i input -ac 1 -ar RATE -acodec pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, d.cfg.BinaryPath, d.args(srcPath, outPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		d.metrics.RecordDecode(err, time.Since(start).Seconds())
		return Waveform{}, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}

	info, err := ReadWAVInfo(outPath)
	if err != nil {
		os.Remove(outPath)
		d.metrics.RecordDecode(err, time.Since(start).Seconds())
		return Waveform{}, err
	}
	d.metrics.RecordDecode(nil, time.Since(start).Seconds())

	log.Debug().
		Str("src", filepath.Base(srcPath)).
		Str("waveform", outPath).
		Dur("audioDuration", info.Duration()).
		Dur("elapsed", time.Since(start)).
		Msg("Audio converted")

	return Waveform{
		Path:         outPath,
		Duration:     info.Duration(),
		SampleRateHz: info.SampleRateHz,
		Temporary:    true,
	}, nil
}

func (d *FFmpegDecoder) args(src, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-ac", "1",
		"-ar", fmt.Sprint(d.cfg.SampleRateHz),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		dst,
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
