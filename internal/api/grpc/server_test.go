package grpcapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"speech-analytics-service/internal/app"
	"speech-analytics-service/internal/config"
	"speech-analytics-service/internal/observability/metrics"
	"speech-analytics-service/internal/service/analysis"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/lexical"
	"speech-analytics-service/internal/service/sentiment"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/service/tracker"
	"speech-analytics-service/internal/transcript"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	requests []analysis.Request
	audio    [][]byte
	err      error
}

func (f *fakeAnalyzer) Run(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	data, _ := os.ReadFile(req.AudioPath)
	f.audio = append(f.audio, data)
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Result{
		InteractionID: req.InteractionID,
		Segments:      []transcript.Segment{{StartSeconds: 0, Text: "tudo ótimo"}},
		Transcript:    "(0:00) tudo ótimo",
		AudioDuration: 2 * time.Second,
		Statistics: lexical.Statistics{
			TotalWords:     3,
			WordsPerMinute: 90,
			WordFrequency:  []lexical.WordCount{{Word: "(0:00)", Count: 1}, {Word: "tudo", Count: 1}, {Word: "ótimo", Count: 1}},
		},
		Sentiment:  sentiment.Positive,
		ReportPath: "/reports/transcription_20240101000000_x.csv",
	}, nil
}

func startServer(t *testing.T, analyzer app.Analyzer, maxBytes int64) (*grpc.ClientConn, *config.Configuration) {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.Dir = t.TempDir()
	if maxBytes > 0 {
		cfg.Upload.MaxBytes = maxBytes
	}
	application := app.New(cfg, analyzer, nil)
	if err := application.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(application, metrics.NewMetrics(prometheus.NewRegistry()))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Shutdown)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, cfg
}

func TestHealthCheck(t *testing.T) {
	conn, _ := startServer(t, &fakeAnalyzer{}, 0)
	client := grpc_health_v1.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, service := range []string{"", ServiceName} {
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service}, grpc.WaitForReady(true))
		if err != nil {
			t.Fatalf("Check(%q) failed: %v", service, err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Errorf("expected %q SERVING, got %v", service, resp.GetStatus())
		}
	}
}

func TestAnalyzeAudio_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	conn, cfg := startServer(t, analyzer, 0)
	client := NewClient(conn)
	client.ChunkSize = 4

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := []byte("0123456789abcdef-audio")
	summary, err := client.AnalyzeAudio(ctx, "call-7", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("AnalyzeAudio failed: %v", err)
	}

	fields := summary.GetFields()
	if got := fields["interactionId"].GetStringValue(); got != "call-7" {
		t.Errorf("expected interactionId call-7, got %s", got)
	}
	if got := fields["sentiment"].GetStringValue(); got != "positive" {
		t.Errorf("expected positive sentiment, got %s", got)
	}
	if got := fields["sentimentLabel"].GetStringValue(); got != "Satisfeito" {
		t.Errorf("expected label Satisfeito, got %s", got)
	}
	if got := fields["totalWords"].GetNumberValue(); got != 3 {
		t.Errorf("expected 3 words, got %v", got)
	}
	if got := fields["reportFile"].GetStringValue(); got != "transcription_20240101000000_x.csv" {
		t.Errorf("unexpected report file %s", got)
	}
	if got := len(fields["wordFrequency"].GetListValue().GetValues()); got != 3 {
		t.Errorf("expected 3 frequency entries, got %d", got)
	}

	if len(analyzer.audio) != 1 || !bytes.Equal(analyzer.audio[0], payload) {
		t.Errorf("expected server to reassemble the streamed audio, got %q", analyzer.audio)
	}
	entries, _ := os.ReadDir(cfg.Upload.Dir)
	if len(entries) != 0 {
		t.Errorf("expected upload to be removed, found %d files", len(entries))
	}
}

func TestAnalyzeAudio_GeneratesInteractionID(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	conn, _ := startServer(t, analyzer, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := NewClient(conn).AnalyzeAudio(ctx, "", bytes.NewReader([]byte("audio"))); err != nil {
		t.Fatalf("AnalyzeAudio failed: %v", err)
	}
	if id := analyzer.requests[0].InteractionID; len(id) != 36 {
		t.Errorf("expected generated uuid, got %q", id)
	}
}

func TestAnalyzeAudio_Errors(t *testing.T) {
	tests := []struct {
		name     string
		analyzer *fakeAnalyzer
		payload  []byte
		maxBytes int64
		want     codes.Code
	}{
		{
			name:     "empty stream",
			analyzer: &fakeAnalyzer{},
			payload:  nil,
			want:     codes.InvalidArgument,
		},
		{
			name:     "too large",
			analyzer: &fakeAnalyzer{},
			payload:  bytes.Repeat([]byte("x"), 64),
			maxBytes: 16,
			want:     codes.ResourceExhausted,
		},
		{
			name: "invalid audio",
			analyzer: &fakeAnalyzer{err: &analysis.StageError{
				Stage: analysis.StageDecode,
				Err:   fmt.Errorf("parse: %w", audio.ErrInvalidWAV),
			}},
			payload: []byte("not audio"),
			want:    codes.InvalidArgument,
		},
		{
			name:     "recognizer failure",
			analyzer: &fakeAnalyzer{err: &analysis.StageError{Stage: analysis.StageTranscribe, Err: errors.New("quota")}},
			payload:  []byte("audio"),
			want:     codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, cfg := startServer(t, tt.analyzer, tt.maxBytes)
			client := NewClient(conn)
			client.ChunkSize = 8

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := client.AnalyzeAudio(ctx, "call", bytes.NewReader(tt.payload))
			if got := status.Code(err); got != tt.want {
				t.Fatalf("expected %v, got %v (%v)", tt.want, got, err)
			}
			entries, _ := os.ReadDir(cfg.Upload.Dir)
			if len(entries) != 0 {
				t.Errorf("expected upload to be removed, found %d files", len(entries))
			}
		})
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{analysis.ErrEmptyAudioPath, codes.InvalidArgument},
		{&analysis.StageError{Stage: analysis.StageAnalyze, Err: lexical.ErrNonPositiveDuration}, codes.InvalidArgument},
		{&analysis.StageError{Stage: analysis.StageTranscribe, Err: context.Canceled}, codes.Canceled},
		{status.Error(codes.PermissionDenied, "nope"), codes.PermissionDenied},
		{fmt.Errorf("%w: call-1", tracker.ErrInProgress), codes.AlreadyExists},
		{&analysis.StageError{Stage: analysis.StageTranscribe, Err: stt.ErrAudioTooLarge}, codes.ResourceExhausted},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := codeFor(tt.err); got != tt.want {
			t.Errorf("codeFor(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}
