package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-analytics-service/internal/app"
	"speech-analytics-service/internal/observability/logging"
	"speech-analytics-service/internal/service/analysis"
	"speech-analytics-service/internal/service/audio"
	"speech-analytics-service/internal/service/lexical"
	"speech-analytics-service/internal/service/stt"
	"speech-analytics-service/internal/service/tracker"
	"speech-analytics-service/internal/transcript"
)

const (
	// InteractionIDHeader lets callers correlate uploads with their own records.
	InteractionIDHeader = "X-Interaction-ID"

	maxInteractionIDLen = 128
	multipartMemory     = 32 << 20
)

var reportNamePattern = regexp.MustCompile(`^transcription_[0-9A-Za-z_-]+\.csv$`)

type handler struct {
	app    *app.Application
	logger zerolog.Logger
}

func newHandler(application *app.Application) *handler {
	return &handler{
		app:    application,
		logger: logging.WithComponent("http"),
	}
}

// TranscriptionResponse is the data returned for a completed analysis.
type TranscriptionResponse struct {
	InteractionID        string             `json:"interactionId"`
	Segments             []transcript.Line  `json:"segments"`
	Transcript           string             `json:"transcript"`
	NormalizedTranscript string             `json:"normalizedTranscript"`
	AudioDurationMs      int64              `json:"audioDurationMs"`
	Statistics           lexical.Statistics `json:"statistics"`
	Sentiment            string             `json:"sentiment"`
	SentimentLabel       string             `json:"sentimentLabel"`
	ReportFile           string             `json:"reportFile"`
	ReportURL            string             `json:"reportUrl"`
}

func newTranscriptionResponse(res *analysis.Result) (*TranscriptionResponse, error) {
	lines, err := transcript.Lines(res.Segments)
	if err != nil {
		return nil, err
	}
	return &TranscriptionResponse{
		InteractionID:        res.InteractionID,
		Segments:             lines,
		Transcript:           res.Transcript,
		NormalizedTranscript: res.NormalizedTranscript,
		AudioDurationMs:      res.AudioDuration.Milliseconds(),
		Statistics:           res.Statistics,
		Sentiment:            res.Sentiment.String(),
		SentimentLabel:       res.Sentiment.Label(),
		ReportFile:           res.ReportFile(),
		ReportURL:            "/v1/reports/" + res.ReportFile(),
	}, nil
}

// CreateTranscription accepts a multipart upload in the "file" field, runs the
// analysis and returns its result.
func (h *handler) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	if !h.app.Ready() {
		respondError(w, http.StatusServiceUnavailable, "service is not ready")
		return
	}

	cfg := h.app.Cfg.Upload
	if r.ContentLength > cfg.MaxBytes {
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", cfg.MaxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		respondError(w, http.StatusBadRequest, "file is empty")
		return
	}

	interactionID, err := interactionID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger := logging.WithAnalysis(interactionID)

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store upload")
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
		}
	}()

	logger.Info().
		Str("filename", filepath.Base(header.Filename)).
		Int64("size", header.Size).
		Msg("Received audio upload")

	res, err := h.app.Analyzer.Run(r.Context(), analysis.Request{
		InteractionID: interactionID,
		AudioPath:     path,
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	body, err := newTranscriptionResponse(res)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, body)
}

// ListTranscriptions returns the status of recent and running analyses.
func (h *handler) ListTranscriptions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.app.Jobs.List())
}

// GetTranscription returns the status of one analysis.
func (h *handler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interactionId")
	st, ok := h.app.Jobs.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no analysis for interaction %s", id))
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// DownloadReport serves a previously written report as an attachment.
func (h *handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !reportNamePattern.MatchString(name) {
		respondError(w, http.StatusBadRequest, "invalid report name")
		return
	}

	f, err := os.Open(filepath.Join(h.app.Cfg.Report.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("report %s not found", name))
			return
		}
		h.logger.Error().Err(err).Str("report", name).Msg("Failed to open report")
		respondError(w, http.StatusInternalServerError, "failed to open report")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		respondError(w, http.StatusNotFound, fmt.Sprintf("report %s not found", name))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// saveUpload copies the upload to a uniquely named file in the upload dir.
// Only the extension of the client's filename is kept.
func (h *handler) saveUpload(src io.Reader, filename string) (string, error) {
	dst, err := os.CreateTemp(h.app.Cfg.Upload.Dir, "upload-*"+safeExt(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// interactionID takes the caller's id from the header or form, or makes one.
func interactionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(InteractionIDHeader))
	if id == "" {
		id = strings.TrimSpace(r.FormValue("interactionId"))
	}
	if id == "" {
		return uuid.NewString(), nil
	}
	if len(id) > maxInteractionIDLen {
		return "", fmt.Errorf("interaction id longer than %d characters", maxInteractionIDLen)
	}
	return id, nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrEmptyAudioPath):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, stt.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, transcript.ErrInvalidSegment),
		errors.Is(err, transcript.ErrNegativeOffset),
		errors.Is(err, lexical.ErrNonPositiveDuration),
		errors.Is(err, audio.ErrInvalidWAV):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
