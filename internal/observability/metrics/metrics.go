// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_analytics"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal     prometheus.Counter
	AnalysesActive    prometheus.Gauge
	AnalysesSucceeded prometheus.Counter
	AnalysesFailed    *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram

	// Transcript metrics
	AudioDuration  prometheus.Histogram
	SegmentsTotal  prometheus.Counter
	WordsPerRun    prometheus.Histogram
	SentimentTotal *prometheus.CounterVec

	// Report metrics
	ReportsWritten     prometheus.Counter
	ReportWriteErrors  prometheus.Counter
	ReportWriteLatency prometheus.Histogram

	// Audio decode metrics
	DecodeLatency prometheus.Histogram
	DecodeErrors  prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Analysis metrics
		AnalysesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of transcription analyses started",
		}),
		AnalysesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_active",
			Help:      "Number of analyses currently running",
		}),
		AnalysesSucceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_succeeded_total",
			Help:      "Total number of analyses that wrote a report",
		}),
		AnalysesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_failed_total",
			Help:      "Total number of failed analyses by pipeline stage",
		}, []string{"stage"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a full analysis in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Transcript metrics
		AudioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Length of analyzed audio in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		SegmentsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Total number of recognized segments",
		}),
		WordsPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "words_per_analysis",
			Help:      "Number of words per analyzed transcript",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		SentimentTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_total",
			Help:      "Total number of transcripts by sentiment",
		}, []string{"sentiment"}),

		// Report metrics
		ReportsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_written_total",
			Help:      "Total number of reports written",
		}),
		ReportWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_write_errors_total",
			Help:      "Total number of failed report writes",
		}),
		ReportWriteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_write_latency_seconds",
			Help:      "Report write latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		// Audio decode metrics
		DecodeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_latency_seconds",
			Help:      "Audio conversion latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of failed audio conversions",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// STT metrics
		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text recognition latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"provider"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// gRPC metrics
		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls by method and status code",
		}, []string{"method", "code"}),
	}
}

// RecordAnalysisStart records a new analysis starting.
func (m *Metrics) RecordAnalysisStart() {
	m.AnalysesTotal.Inc()
	m.AnalysesActive.Inc()
}

// RecordAnalysisEnd records an analysis ending. An empty stage means success.
func (m *Metrics) RecordAnalysisEnd(failedStage string, durationSeconds float64) {
	m.AnalysesActive.Dec()
	m.AnalysisDuration.Observe(durationSeconds)
	if failedStage == "" {
		m.AnalysesSucceeded.Inc()
	} else {
		m.AnalysesFailed.WithLabelValues(failedStage).Inc()
	}
}

// RecordTranscript records the shape of an analyzed transcript.
func (m *Metrics) RecordTranscript(audioSeconds float64, segments, words int, sentiment string) {
	m.AudioDuration.Observe(audioSeconds)
	m.SegmentsTotal.Add(float64(segments))
	m.WordsPerRun.Observe(float64(words))
	m.SentimentTotal.WithLabelValues(sentiment).Inc()
}

// RecordReportWrite records a report write attempt.
func (m *Metrics) RecordReportWrite(err error, latencySeconds float64) {
	m.ReportWriteLatency.Observe(latencySeconds)
	if err != nil {
		m.ReportWriteErrors.Inc()
		return
	}
	m.ReportsWritten.Inc()
}

// RecordDecode records an audio conversion attempt.
func (m *Metrics) RecordDecode(err error, latencySeconds float64) {
	m.DecodeLatency.Observe(latencySeconds)
	if err != nil {
		m.DecodeErrors.Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordSTT records a recognition call.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
