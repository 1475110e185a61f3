// Package models defines the data structures for analysis events.
package models

// Event types carried in the eventType field.
const (
	EventAnalysisCompleted = "transcript.analysis.completed"
	EventAnalysisFailed    = "transcript.analysis.failed"
)

// AnalysisCompleted is emitted once a report has been written.
type AnalysisCompleted struct {
	EventType           string  `json:"eventType" validate:"required,eq=transcript.analysis.completed"`
	InteractionID       string  `json:"interactionId" validate:"required"`
	Timestamp           int64   `json:"timestamp" validate:"gt=0"`
	AudioDurationMs     int64   `json:"audioDurationMs" validate:"gte=0"`
	SegmentCount        int     `json:"segmentCount" validate:"gte=0"`
	TotalWords          int     `json:"totalWords" validate:"gte=0"`
	WordsPerMinute      float64 `json:"wordsPerMinute" validate:"gte=0"`
	MagicWordPercentage float64 `json:"magicWordPercentage" validate:"gte=0,lte=100"`
	Sentiment           string  `json:"sentiment" validate:"required,oneof=positive negative neutral"`
	ReportFile          string  `json:"reportFile" validate:"required"`
}

// AnalysisFailed is emitted when a pipeline stage fails.
type AnalysisFailed struct {
	EventType     string `json:"eventType" validate:"required,eq=transcript.analysis.failed"`
	InteractionID string `json:"interactionId" validate:"required"`
	Timestamp     int64  `json:"timestamp" validate:"gt=0"`
	Stage         string `json:"stage" validate:"required,oneof=decode transcribe analyze report"`
	Error         string `json:"error" validate:"required"`
}
