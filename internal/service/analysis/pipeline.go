// Package analysis runs one transcription request end to end:
// decode, transcribe, assemble, compute statistics and sentiment, write the
// report and announce the outcome.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"speech-analytics-service/internal/models"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/observability/metrics"
	"speech-analytics-service/internal/schema"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/lexical"
	"speech-analytics-service/internal/service/report"
	"speech-analytics-service/internal/service/sentiment"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/service/tracker"
	"speech-analytics-service/internal/transcript"
)

// Pipeline stages, used in errors, logs, metrics and failed events.
const (
	StageDecode     = "decode"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StageReport     = "report"
)

// ErrEmptyAudioPath is returned for a request without an audio file.
var ErrEmptyAudioPath = errors.New("audio path is required")

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Publisher announces analysis outcomes. *events.Publisher implements it.
type Publisher interface {
	PublishCompleted(ctx context.Context, key string, event any) error
	PublishFailed(ctx context.Context, key string, event any) error
}

// Config wires a Pipeline's collaborators.
type Config struct {
	Decoder    audio.Decoder
	Recognizer stt.Recognizer
	ReportDir  string

	// Optional.
	Publisher Publisher
	Validator *schema.Validator
	Metrics   *metrics.Metrics
	Tracker   *tracker.Tracker
	Clock     func() time.Time
}

// Request is one audio file to analyze.
type Request struct {
	InteractionID string
	AudioPath     string
}

// Result is everything derived from one request.
type Result struct {
	InteractionID        string
	Segments             []transcript.Segment
	Transcript           string
	NormalizedTranscript string
	AudioDuration        time.Duration
	Statistics           lexical.Statistics
	Sentiment            sentiment.Sentiment
	ReportPath           string
}

// ReportFile returns the base name of the written report.
func (r *Result) ReportFile() string {
	return filepath.Base(r.ReportPath)
}

// Pipeline holds the shared collaborators. Each Run works on its own data,
// so one Pipeline serves concurrent requests.
type Pipeline struct {
	decoder    audio.Decoder
	recognizer stt.Recognizer
	reportDir  string
	publisher  Publisher
	validator  *schema.Validator
	metrics    *metrics.Metrics
	tracker    *tracker.Tracker
	now        func() time.Time
}

// New creates a Pipeline. Decoder, Recognizer and ReportDir are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Decoder == nil {
		return nil, errors.New("analysis: decoder is required")
	}
	if cfg.Recognizer == nil {
		return nil, errors.New("analysis: recognizer is required")
	}
	if cfg.ReportDir == "" {
		return nil, errors.New("analysis: report dir is required")
	}
	p := &Pipeline{
		decoder:    cfg.Decoder,
		recognizer: cfg.Recognizer,
		reportDir:  cfg.ReportDir,
		publisher:  cfg.Publisher,
		validator:  cfg.Validator,
		metrics:    cfg.Metrics,
		tracker:    cfg.Tracker,
		now:        cfg.Clock,
	}
	if p.validator == nil {
		p.validator = schema.New()
	}
	if p.metrics == nil {
		p.metrics = metrics.DefaultMetrics
	}
	if p.tracker == nil {
		p.tracker = tracker.New(0)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Tracker returns the tracker recording this pipeline's runs.
func (p *Pipeline) Tracker() *tracker.Tracker {
	return p.tracker
}

// Run executes the pipeline for req. Stages run strictly in order; a failure
// stops the run and is returned as a *StageError. A second request for an
// interaction that is still running fails with tracker.ErrInProgress.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.AudioPath == "" {
		return nil, ErrEmptyAudioPath
	}
	job, err := p.tracker.Start(req.InteractionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.InteractionID)
	}

	start := time.Now()
	p.metrics.RecordAnalysisStart()
	logger := logging.WithAnalysis(req.InteractionID)

	res, err := p.run(ctx, req, job)
	if err != nil {
		stage := StageAnalyze
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		job.Fail(stage, err)
		p.metrics.RecordAnalysisEnd(stage, time.Since(start).Seconds())
		logger.Error().Err(err).Str("stage", stage).Dur("elapsed", time.Since(start)).Msg("Analysis failed")
		p.publishFailed(ctx, req.InteractionID, stage, err)
		return nil, err
	}

	_ = job.Complete(res.ReportFile())
	p.metrics.RecordAnalysisEnd("", time.Since(start).Seconds())
	logger.Info().
		Int("segments", len(res.Segments)).
		Int("totalWords", res.Statistics.TotalWords).
		Str("sentiment", res.Sentiment.String()).
		Str("report", res.ReportFile()).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis completed")
	p.publishCompleted(ctx, res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, job *tracker.Job) (*Result, error) {
	logger, started := beginStage(job, req.InteractionID, StageDecode)
	wav, err := p.decoder.Decode(ctx, req.AudioPath)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	defer func() {
		if err := wav.Release(); err != nil {
			warnLogger := logging.WithAnalysis(req.InteractionID)
			warnLogger.Warn().Err(err).Str("waveform", wav.Path).Msg("Failed to remove waveform")
		}
	}()
	logger.Info().
		Str("audio", filepath.Base(req.AudioPath)).
		Dur("audioDuration", wav.Duration).
		Dur("elapsed", time.Since(started)).
		Msg("Stage completed")

	logger, started = beginStage(job, req.InteractionID, StageTranscribe)
	segments, err := p.recognizer.Transcribe(ctx, wav)
	if err != nil {
		return nil, &StageError{Stage: StageTranscribe, Err: err}
	}
	if err := transcript.Validate(segments); err != nil {
		return nil, &StageError{Stage: StageTranscribe, Err: err}
	}
	logger.Info().
		Str("sttProvider", p.recognizer.Name()).
		Int("segments", len(segments)).
		Dur("elapsed", time.Since(started)).
		Msg("Stage completed")

	logger, started = beginStage(job, req.InteractionID, StageAnalyze)
	text, err := transcript.Assemble(segments)
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}
	stats, err := lexical.Compute(text, wav.DurationMinutes())
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}
	label := sentiment.Classify(text)
	p.metrics.RecordTranscript(wav.Duration.Seconds(), len(segments), stats.TotalWords, label.String())
	logger.Info().
		Int("totalWords", stats.TotalWords).
		Float64("wordsPerMinute", stats.WordsPerMinute).
		Str("sentiment", label.String()).
		Dur("elapsed", time.Since(started)).
		Msg("Stage completed")

	logger, started = beginStage(job, req.InteractionID, StageReport)
	path, err := p.writeReport(req.InteractionID, segments, stats)
	p.metrics.RecordReportWrite(err, time.Since(started).Seconds())
	if err != nil {
		return nil, &StageError{Stage: StageReport, Err: err}
	}
	logger.Info().
		Str("report", filepath.Base(path)).
		Dur("elapsed", time.Since(started)).
		Msg("Stage completed")

	return &Result{
		InteractionID:        req.InteractionID,
		Segments:             segments,
		Transcript:           text,
		NormalizedTranscript: transcript.Normalize(text),
		AudioDuration:        wav.Duration,
		Statistics:           stats,
		Sentiment:            label,
		ReportPath:           path,
	}, nil
}

// beginStage moves job to stage and returns the stage logger and start time.
func beginStage(job *tracker.Job, interactionID, stage string) (zerolog.Logger, time.Time) {
	_ = job.Advance(stage)
	logger := logging.WithStage(interactionID, stage)
	logger.Debug().Msg("Stage started")
	return logger, time.Now()
}

// writeReport claims a unique report path and writes the report to it. The
// claimed file is removed again if the write fails.
func (p *Pipeline) writeReport(interactionID string, segments []transcript.Segment, stats lexical.Statistics) (string, error) {
	path, err := report.Reserve(p.reportDir, p.reportStem(interactionID))
	if err != nil {
		return "", err
	}
	if err := report.Write(path, segments, stats); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// maxIDChars caps the interaction id part of a report name.
const maxIDChars = 64

// reportStem is transcription_<YYYYMMDDHHMMSS>[_<id>], where id keeps the
// filename-safe characters of the interaction id. report.Reserve appends a
// numeric suffix when the stem is already taken.
func (p *Pipeline) reportStem(interactionID string) string {
	stamp := p.now().Format("20060102150405")
	if id := safeID(interactionID); id != "" {
		return "transcription_" + stamp + "_" + id
	}
	return "transcription_" + stamp
}

// safeID keeps up to maxIDChars filename-safe characters of id.
func safeID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id) && len(out) < maxIDChars; i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			out = append(out, c)
		}
	}
	return string(out)
}

func (p *Pipeline) publishCompleted(ctx context.Context, res *Result) {
	if p.publisher == nil {
		return
	}
	ev := models.AnalysisCompleted{
		EventType:           models.EventAnalysisCompleted,
		InteractionID:       res.InteractionID,
		Timestamp:           p.now().UnixMilli(),
		AudioDurationMs:     res.AudioDuration.Milliseconds(),
		SegmentCount:        len(res.Segments),
		TotalWords:          res.Statistics.TotalWords,
		WordsPerMinute:      res.Statistics.WordsPerMinute,
		MagicWordPercentage: res.Statistics.MagicWordPercentage,
		Sentiment:           res.Sentiment.String(),
		ReportFile:          res.ReportFile(),
	}
	p.publish(ctx, res.InteractionID, ev, p.publisher.PublishCompleted)
}

func (p *Pipeline) publishFailed(ctx context.Context, interactionID, stage string, cause error) {
	if p.publisher == nil {
		return
	}
	ev := models.AnalysisFailed{
		EventType:     models.EventAnalysisFailed,
		InteractionID: interactionID,
		Timestamp:     p.now().UnixMilli(),
		Stage:         stage,
		Error:         cause.Error(),
	}
	p.publish(ctx, interactionID, ev, p.publisher.PublishFailed)
}

// publish validates ev and hands it to send. Event delivery never fails a run.
func (p *Pipeline) publish(ctx context.Context, key string, ev any, send func(context.Context, string, any) error) {
	logger := logging.WithAnalysis(key)
	if err := p.validator.Validate(ev); err != nil {
		logger.Error().Err(err).Msg("Dropping invalid event")
		return
	}
	if err := send(context.WithoutCancel(ctx), key, ev); err != nil {
		logger.Error().Err(err).Msg("Failed to publish event")
	}
}
