// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"speech-analytics-service/internal/observability/metrics"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/transcript"
)

const providerName = "google"

// maxInlineBytes stays under the 10 MB cap on inline recognition content.
// Longer WAV audio is sent as consecutive raw PCM chunks.
const maxInlineBytes = 9 << 20

// Config holds Google recognition settings.
type Config struct {
	LanguageCode       string
	SampleRateHz       int
	AudioEncoding      string
	WordTimeOffsets    bool
	AutoPunctuation    bool
	RecognitionTimeout time.Duration
}

// DefaultConfig returns the settings used for Brazilian Portuguese calls.
func DefaultConfig() Config {
	return Config{
		LanguageCode:       "pt-BR",
		SampleRateHz:       16000,
		AudioEncoding:      "LINEAR16",
		WordTimeOffsets:    true,
		AutoPunctuation:    true,
		RecognitionTimeout: 10 * time.Minute,
	}
}

// Adapter implements stt.Recognizer using Google Cloud Speech-to-Text
// long-running recognition.
type Adapter struct {
	client  *speech.Client
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a new Google recognizer.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Adapter{client: c, cfg: cfg, metrics: m}, nil
}

// Name implements stt.Recognizer.
func (a *Adapter) Name() string {
	return providerName
}

// Transcribe sends the waveform and waits for the recognition to finish.
// Waveforms over the inline limit are recognized chunk by chunk in order.
func (a *Adapter) Transcribe(ctx context.Context, wav audio.Waveform) ([]transcript.Segment, error) {
	content, err := os.ReadFile(wav.Path)
	if err != nil {
		return nil, fmt.Errorf("read waveform: %w", err)
	}
	if len(content) == 0 {
		return nil, stt.ErrNoAudio
	}

	if a.cfg.RecognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RecognitionTimeout)
		defer cancel()
	}

	chunks, err := splitContent(content, maxInlineBytes)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var segments []transcript.Segment
	for _, c := range chunks {
		rate := wav.SampleRateHz
		if c.sampleRateHz > 0 {
			rate = c.sampleRateHz
		}
		req := a.request(c.data, rate)
		if c.channels > 1 {
			req.Config.AudioChannelCount = int32(c.channels)
		}
		chunkSegments, err := a.recognize(ctx, req)
		if err != nil {
			return nil, err
		}
		for _, s := range chunkSegments {
			s.StartSeconds += c.offsetSeconds
			segments = append(segments, s)
		}
	}
	a.metrics.RecordSTT(providerName, time.Since(start).Seconds())

	log.Debug().
		Str("sttProvider", providerName).
		Int("chunks", len(chunks)).
		Int("segments", len(segments)).
		Dur("elapsed", time.Since(start)).
		Msg("Recognition finished")
	return segments, nil
}

func (a *Adapter) recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) ([]transcript.Segment, error) {
	op, err := a.client.LongRunningRecognize(ctx, req)
	if err != nil {
		a.metrics.RecordSTTError(providerName, status.Code(err).String())
		return nil, fmt.Errorf("start recognition: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		a.metrics.RecordSTTError(providerName, status.Code(err).String())
		return nil, fmt.Errorf("wait recognition: %w", err)
	}
	return segmentsFromResults(resp.GetResults()), nil
}

// chunk is one inline recognition request worth of audio.
type chunk struct {
	data          []byte
	offsetSeconds float64
	// Set only for raw PCM chunks, which carry no header.
	sampleRateHz int
	channels     int
}

// splitContent returns content as a single chunk when it fits in limit.
// Larger PCM WAV content is cut into frame-aligned raw sample chunks, each
// tagged with its start time in the recording. Anything else that is too
// large fails with stt.ErrAudioTooLarge.
func splitContent(content []byte, limit int) ([]chunk, error) {
	if len(content) <= limit {
		return []chunk{{data: content}}, nil
	}
	info, err := audio.ParseWAV(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes is over the %d byte inline limit and is not PCM WAV",
			stt.ErrAudioTooLarge, len(content), limit)
	}
	frame := info.Channels * info.BitsPerSample / 8
	step := limit - limit%frame
	if step <= 0 || info.ByteRate() == 0 {
		return nil, fmt.Errorf("%w: cannot split %d byte frames", stt.ErrAudioTooLarge, frame)
	}

	pcm := content[info.DataOffset : info.DataOffset+info.DataBytes]
	chunks := make([]chunk, 0, len(pcm)/step+1)
	for off := 0; off < len(pcm); off += step {
		end := min(off+step, len(pcm))
		chunks = append(chunks, chunk{
			data:          pcm[off:end],
			offsetSeconds: float64(off) / float64(info.ByteRate()),
			sampleRateHz:  info.SampleRateHz,
			channels:      info.Channels,
		})
	}
	if len(chunks) == 0 {
		return nil, stt.ErrNoAudio
	}
	return chunks, nil
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Adapter) request(content []byte, sampleRateHz int) *speechpb.LongRunningRecognizeRequest {
	rate := a.cfg.SampleRateHz
	if sampleRateHz > 0 {
		rate = sampleRateHz
	}
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz:            int32(rate),
			LanguageCode:               a.cfg.LanguageCode,
			EnableWordTimeOffsets:      a.cfg.WordTimeOffsets,
			EnableAutomaticPunctuation: a.cfg.AutoPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}
}

// segmentsFromResults maps each result's top alternative to a segment.
// A segment starts at its first word when word offsets are present, and
// otherwise where the previous result ended. Empty results only advance the clock.
func segmentsFromResults(results []*speechpb.SpeechRecognitionResult) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(results))
	var prevEnd float64
	for _, r := range results {
		end := seconds(r.GetResultEndTime())
		alts := r.GetAlternatives()
		if len(alts) == 0 || strings.TrimSpace(alts[0].GetTranscript()) == "" {
			if end > prevEnd {
				prevEnd = end
			}
			continue
		}

		alt := alts[0]
		start := prevEnd
		if words := alt.GetWords(); len(words) > 0 && words[0].GetStartTime() != nil {
			start = seconds(words[0].GetStartTime())
		}
		segments = append(segments, transcript.Segment{
			StartSeconds: start,
			Text:         alt.GetTranscript(),
		})
		if end > prevEnd {
			prevEnd = end
		}
	}
	return segments
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
