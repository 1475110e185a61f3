// Package grpcapi serves the analysis pipeline and the standard health
// service over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"speech-analytics-service/internal/app"
	"speech-analytics-service/internal/observability"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/observability/metrics"
	"speech-analytics-service/internal/service/analysis"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/lexical"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/service/tracker"
	"speech-analytics-service/internal/transcript"
)

// Server owns the gRPC server and its health status.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// NewServer builds a gRPC server exposing TranscriptAnalysisService, health
// and reflection. Calls are counted in m.
func NewServer(application *app.Application, m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	// Register gRPC health check service
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Register application services
	RegisterTranscriptAnalysisServer(g, &analysisService{app: application})

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	return &Server{
		grpc:   g,
		health: hs,
		logger: logging.WithComponent("grpc"),
	}
}

// Serve marks the services serving and blocks until lis fails or the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// Shutdown reports NOT_SERVING and drains in-flight calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info().Msg("gRPC server stopped")
}

type analysisService struct {
	app *app.Application
}

// AnalyzeAudio buffers the streamed audio to the upload dir, runs the
// pipeline and returns the summary.
func (s *analysisService) AnalyzeAudio(stream AnalyzeAudioStream) error {
	if !s.app.Ready() {
		return status.Error(codes.Unavailable, "service is not ready")
	}
	interactionID := interactionIDFrom(stream)
	logger := logging.WithAnalysis(interactionID)

	path, size, err := s.receive(stream)
	if path != "" {
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
			}
		}()
	}
	if err != nil {
		return err
	}
	logger.Info().Int64("size", size).Msg("Received audio stream")

	res, err := s.app.Analyzer.Run(stream.Context(), analysis.Request{
		InteractionID: interactionID,
		AudioPath:     path,
	})
	if err != nil {
		return status.Error(codeFor(err), err.Error())
	}

	summary, err := summarize(res)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.SendAndClose(summary)
}

// receive writes every chunk to a temp file. The returned path is set
// whenever a file was created, even on error.
func (s *analysisService) receive(stream AnalyzeAudioStream) (string, int64, error) {
	cfg := s.app.Cfg.Upload
	f, err := os.CreateTemp(cfg.Dir, "stream-*")
	if err != nil {
		return "", 0, status.Errorf(codes.Internal, "create upload: %v", err)
	}
	defer f.Close()

	var size int64
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return f.Name(), size, err
		}
		size += int64(len(chunk.GetValue()))
		if size > cfg.MaxBytes {
			return f.Name(), size, status.Errorf(codes.ResourceExhausted, "upload exceeds %d bytes", cfg.MaxBytes)
		}
		if _, err := f.Write(chunk.GetValue()); err != nil {
			return f.Name(), size, status.Errorf(codes.Internal, "write upload: %v", err)
		}
	}
	if size == 0 {
		return f.Name(), 0, status.Error(codes.InvalidArgument, "no audio received")
	}
	if err := f.Close(); err != nil {
		return f.Name(), size, status.Errorf(codes.Internal, "close upload: %v", err)
	}
	return f.Name(), size, nil
}

func interactionIDFrom(stream grpc.ServerStream) string {
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		if v := md.Get(InteractionIDKey); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, analysis.ErrEmptyAudioPath),
		errors.Is(err, transcript.ErrInvalidSegment),
		errors.Is(err, transcript.ErrNegativeOffset),
		errors.Is(err, lexical.ErrNonPositiveDuration),
		errors.Is(err, audio.ErrInvalidWAV):
		return codes.InvalidArgument
	case errors.Is(err, tracker.ErrInProgress):
		return codes.AlreadyExists
	case errors.Is(err, stt.ErrAudioTooLarge):
		return codes.ResourceExhausted
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
			return st.Code()
		}
		return codes.Internal
	}
}

func summarize(res *analysis.Result) (*structpb.Struct, error) {
	freq := make([]any, 0, len(res.Statistics.WordFrequency))
	for _, wc := range res.Statistics.WordFrequency {
		freq = append(freq, map[string]any{"word": wc.Word, "count": wc.Count})
	}
	s, err := structpb.NewStruct(map[string]any{
		"interactionId":        res.InteractionID,
		"transcript":           res.Transcript,
		"normalizedTranscript": res.NormalizedTranscript,
		"audioDurationMs":      res.AudioDuration.Milliseconds(),
		"segmentCount":         len(res.Segments),
		"totalWords":           res.Statistics.TotalWords,
		"wordsPerMinute":       res.Statistics.WordsPerMinute,
		"magicWordPercentage":  res.Statistics.MagicWordPercentage,
		"wordFrequency":        freq,
		"sentiment":            res.Sentiment.String(),
		"sentimentLabel":       res.Sentiment.Label(),
		"reportFile":           res.ReportFile(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return s, nil
}

var _ TranscriptAnalysisServer = (*analysisService)(nil)
