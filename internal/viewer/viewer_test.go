package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"speech-analytics-service/internal/models"
)

type fakeReader struct {
	mu    sync.Mutex
	queue []kafka.Message
	errs  []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return b
}

func TestDecode(t *testing.T) {
	completed := models.AnalysisCompleted{
		EventType:     models.EventAnalysisCompleted,
		InteractionID: "call-1",
		Timestamp:     1,
		Sentiment:     "positive",
		ReportFile:    "transcription_1.csv",
	}
	failed := models.AnalysisFailed{
		EventType:     models.EventAnalysisFailed,
		InteractionID: "call-2",
		Timestamp:     1,
		Stage:         "decode",
		Error:         "bad audio",
	}

	ev, err := Decode(mustJSON(t, completed))
	if err != nil {
		t.Fatalf("Decode completed failed: %v", err)
	}
	if got, ok := ev.(models.AnalysisCompleted); !ok || got.ReportFile != "transcription_1.csv" {
		t.Errorf("unexpected completed decode: %#v", ev)
	}

	ev, err = Decode(mustJSON(t, failed))
	if err != nil {
		t.Fatalf("Decode failed failed: %v", err)
	}
	if got, ok := ev.(models.AnalysisFailed); !ok || got.Stage != "decode" {
		t.Errorf("unexpected failed decode: %#v", ev)
	}

	for _, bad := range []string{`{"eventType":"other"}`, `not json`, `{}`} {
		if _, err := Decode([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConsume_BroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	reader := &fakeReader{
		errs: []error{errors.New("leader not available")},
		queue: []kafka.Message{
			{Value: []byte("garbage"), Offset: 1},
			{Key: []byte("call-9"), Value: mustJSON(t, models.AnalysisFailed{
				EventType:     models.EventAnalysisFailed,
				InteractionID: "call-9",
				Timestamp:     1,
				Stage:         "transcribe",
				Error:         "quota",
			}), Offset: 2},
		},
	}
	go Consume(ctx, reader, "transcript.analysis.failed", hub, time.Millisecond)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got struct {
		Topic string         `json:"topic"`
		Event map[string]any `json:"event"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Topic != "transcript.analysis.failed" {
		t.Errorf("expected failed topic, got %s", got.Topic)
	}
	if got.Event["interactionId"] != "call-9" || got.Event["stage"] != "transcribe" {
		t.Errorf("unexpected event %v", got.Event)
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitFor(t, func() bool { return hub.Clients() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestHub_ServeWSAfterRunReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
		close(served)
	}))
	defer srv.Close()

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeWS blocked after hub stopped")
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
	if hub.Clients() != 0 {
		t.Errorf("expected no clients, got %d", hub.Clients())
	}
}

func TestHub_ClosesClientsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	cancel()
	<-hub.Done()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed on cancel")
	}
	if hub.Clients() != 0 {
		t.Errorf("expected no clients, got %d", hub.Clients())
	}
}

func TestConsume_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		Consume(ctx, &fakeReader{}, "topic", hub, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Consume did not return after cancel")
	}
}

func TestHandler_Index(t *testing.T) {
	h := NewHandler(NewHub())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/ws") {
		t.Error("expected page to open the event socket")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
