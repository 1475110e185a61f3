package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	grpcapi "speech-analytics-service/internal/api/grpc"
	"speech-analytics-service/internal/app"
	"speech-analytics-service/internal/config"
	"speech-analytics-service/internal/events"
	apihttp "speech-analytics-service/internal/http"
	"speech-analytics-service/internal/observability"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/observability/metrics"
	"speech-analytics-service/internal/schema"
	"speech-analytics-service/internal/service/analysis"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/service/stt/google"
	"speech-analytics-service/internal/service/stt/mock"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	for _, dir := range []string{cfg.Upload.Dir, cfg.Report.Dir, cfg.Audio.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create directory")
		}
	}

	m := metrics.DefaultMetrics
	ctx := context.Background()

	recognizer, closeRecognizer, err := newRecognizer(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Str("sttProvider", cfg.STT.Provider).Msg("Failed to create STT recognizer")
	}
	defer closeRecognizer()

	// Create Kafka publisher with separate topics for completed and failed analyses
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
		Metrics:        m,
	})
	defer publisher.Close()

	pipeline, err := analysis.New(analysis.Config{
		Decoder: audio.NewFFmpegDecoder(audio.FFmpegConfig{
			BinaryPath:   cfg.Audio.FFmpegPath,
			SampleRateHz: cfg.Audio.SampleRateHz,
			WorkDir:      cfg.Audio.WorkDir,
		}, m),
		Recognizer: recognizer,
		ReportDir:  cfg.Report.Dir,
		Publisher:  publisher,
		Validator:  schema.New(),
		Metrics:    m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analysis pipeline")
	}

	application := app.New(cfg, pipeline, pipeline.Tracker())

	obs := observability.NewServer(cfg.Observability.MetricsAddr, prometheus.DefaultGatherer, application.Ready)
	obs.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen")
	}
	grpcServer := grpcapi.NewServer(application, m)

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	application.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	grpcServer.Shutdown()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown failed")
	}
}

// newRecognizer picks the STT backend. The returned func releases it.
func newRecognizer(ctx context.Context, cfg *config.Configuration, m *metrics.Metrics) (stt.Recognizer, func(), error) {
	switch cfg.STT.Provider {
	case "google":
		g, err := google.New(ctx, google.Config{
			LanguageCode:       cfg.STT.LanguageCode,
			SampleRateHz:       cfg.STT.SampleRateHz,
			AudioEncoding:      cfg.STT.AudioEncoding,
			WordTimeOffsets:    cfg.STT.WordTimeOffsets,
			AutoPunctuation:    cfg.STT.AutoPunctuation,
			RecognitionTimeout: cfg.STT.Timeout,
		}, m)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close STT client")
			}
		}, nil
	default:
		log.Warn().Msg("Using mock STT recognizer")
		return mock.New(), func() {}, nil
	}
}
