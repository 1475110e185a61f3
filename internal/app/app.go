// Package app holds process-wide state shared by the HTTP and gRPC surfaces.
package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"speech-analytics-service/internal/config"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/service/analysis"
	"speech-analytics-service/internal/service/tracker"
)

// Analyzer runs one analysis. *analysis.Pipeline implements it.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Analyzer    Analyzer
	Jobs        *tracker.Tracker

	ready atomic.Bool
}

// New constructs a new Application from the provided configuration. jobs
// is the tracker the analyzer reports to; nil gets an empty one.
func New(cfg *config.Configuration, analyzer Analyzer, jobs *tracker.Tracker) *Application {
	if jobs == nil {
		jobs = tracker.New(0)
	}
	a := &Application{
		Cfg:      cfg,
		Analyzer: analyzer,
		Jobs:     jobs,
		Logger:   logging.WithComponent("application"),
	}

	a.Logger.Info().
		Str("method", "New").
		Str("sttProvider", cfg.STT.Provider).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Speech analytics application created")
	return a
}

// Start marks the application ready to serve traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)

	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Speech analytics service starting")
	return nil
}

// Ready reports whether the application accepts work.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown stops accepting work. In-flight analyses are left to finish.
func (a *Application) Shutdown() {
	a.ready.Store(false)

	a.Logger.Info().
		Str("method", "Shutdown").
		Int("running", a.Jobs.Running()).
		Dur("uptime", time.Since(a.StartupTime)).
		Msg("Speech analytics service shutting down")
}
