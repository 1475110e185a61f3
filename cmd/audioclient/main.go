package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	grpcapi "speech-analytics-service/internal/api/grpc"
	"speech-analytics-service/internal/service/audio"
)

func main() {
	audioFile := flag.String("audio", "testdata/call.wav", "Path to the audio file to analyze")
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	interactionId := flag.String("interaction", "test-audio-"+time.Now().Format("150405"), "Interaction ID")
	chunkSize := flag.Int("chunk", 32<<10, "Bytes per streamed chunk")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall call timeout")
	healthOnly := flag.Bool("health", false, "Only run a health check")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *healthOnly {
		resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: grpcapi.ServiceName})
		if err != nil {
			log.Fatal().Err(err).Msg("Health check failed")
		}
		log.Info().Str("status", resp.GetStatus().String()).Msg("Health check")
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			os.Exit(1)
		}
		return
	}

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	// WAV input is inspected locally; anything else is left to the server's ffmpeg.
	if strings.EqualFold(filepath.Ext(*audioFile), ".wav") {
		if info, err := audio.ReadWAVInfo(*audioFile); err == nil {
			log.Info().
				Int("channels", info.Channels).
				Int("sampleRateHz", info.SampleRateHz).
				Int("bitsPerSample", info.BitsPerSample).
				Dur("duration", info.Duration()).
				Msg("WAV file")
		} else {
			log.Warn().Err(err).Msg("Could not read WAV header")
		}
	}

	client := grpcapi.NewClient(conn)
	client.ChunkSize = *chunkSize

	log.Info().Str("server", *serverAddr).Str("interactionId", *interactionId).Msg("Streaming audio")
	start := time.Now()

	summary, err := client.AnalyzeAudio(ctx, *interactionId, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("Analysis completed")
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(summary)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode summary")
	}
	os.Stdout.Write(append(out, '\n'))
}
