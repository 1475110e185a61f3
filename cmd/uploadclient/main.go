package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type summary struct {
	InteractionID  string `json:"interactionId"`
	Sentiment      string `json:"sentiment"`
	SentimentLabel string `json:"sentimentLabel"`
	ReportFile     string `json:"reportFile"`
	ReportURL      string `json:"reportUrl"`
}

func main() {
	audioFile := flag.String("audio", "testdata/call.mp3", "Path to the audio file to upload")
	serverURL := flag.String("server", "http://localhost:8080", "HTTP server base URL")
	interactionId := flag.String("interaction", "", "Interaction ID (server generates one when empty)")
	outDir := flag.String("out", "", "Directory to download the CSV report into")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall request timeout")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	client := &http.Client{Timeout: *timeout}

	body, contentType, err := multipartBody(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read audio file")
	}

	req, err := http.NewRequest(http.MethodPost, *serverURL+"/v1/transcriptions", body)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}
	req.Header.Set("Content-Type", contentType)
	if *interactionId != "" {
		req.Header.Set("X-Interaction-ID", *interactionId)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read response")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Fatal().Err(err).Int("status", resp.StatusCode).Msg("Unexpected response")
	}
	if env.Status != "success" {
		log.Fatal().Int("status", resp.StatusCode).Str("message", env.Message).Msg("Analysis failed")
	}

	var sum summary
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		log.Fatal().Err(err).Msg("Unexpected response data")
	}
	log.Info().
		Str("interactionId", sum.InteractionID).
		Str("sentiment", sum.SentimentLabel).
		Str("report", sum.ReportFile).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis completed")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Data, "", "  "); err == nil {
		pretty.WriteByte('\n')
		os.Stdout.Write(pretty.Bytes())
	}

	if *outDir != "" {
		path := filepath.Join(*outDir, sum.ReportFile)
		if err := download(client, *serverURL+sum.ReportURL, path); err != nil {
			log.Fatal().Err(err).Msg("Failed to download report")
		}
		log.Info().Str("path", path).Msg("Report downloaded")
	}
}

func multipartBody(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func download(client *http.Client, url, path string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
