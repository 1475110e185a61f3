package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"speech-analytics-service/internal/config"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/viewer"
)

func main() {
	def := config.Default()
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicCompleted := flag.String("topic-completed", def.Kafka.TopicCompleted, "Completed analysis topic")
	topicFailed := flag.String("topic-failed", def.Kafka.TopicFailed, "Failed analysis topic")
	lookback := flag.Duration("lookback", time.Hour, "Replay events newer than this on start")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub()
	go hub.Run(ctx)

	brokerList := strings.Split(*brokers, ",")
	for _, topic := range []string{*topicCompleted, *topicFailed} {
		r := viewer.NewReader(ctx, brokerList, topic, *lookback)
		defer r.Close()
		go viewer.Consume(ctx, r, topic, hub, time.Second)
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           viewer.NewHandler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", "http://localhost:"+*port).
		Str("brokers", *brokers).
		Strs("topics", []string{*topicCompleted, *topicFailed}).
		Msg("Event viewer starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}
