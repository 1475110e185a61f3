package app

import (
	"context"
	"testing"

	"speech-analytics-service/internal/config"
	"speech-analytics-service/internal/service/analysis"
)

type nopAnalyzer struct{}

func (nopAnalyzer) Run(context.Context, analysis.Request) (*analysis.Result, error) {
	return &analysis.Result{}, nil
}

func TestApplication_Lifecycle(t *testing.T) {
	a := New(config.Default(), nopAnalyzer{}, nil)

	if a.Ready() {
		t.Error("expected application not ready before Start")
	}
	if a.Analyzer == nil {
		t.Error("expected analyzer to be set")
	}
	if a.Jobs == nil {
		t.Error("expected a default job tracker")
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !a.Ready() {
		t.Error("expected application ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time to be recorded")
	}

	a.Shutdown()
	if a.Ready() {
		t.Error("expected application not ready after Shutdown")
	}
}
