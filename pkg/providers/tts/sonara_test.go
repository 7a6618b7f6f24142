package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sonara-ai/sonara-dialogue/pkg/dialogue"
)

func newTestServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn, req map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		var req map[string]interface{}
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}
		handler(r.Context(), conn, req)
	}))
}

func TestSonaraTTSStream(t *testing.T) {
	var gotReq map[string]interface{}
	server := newTestServer(t, func(ctx context.Context, conn *websocket.Conn, req map[string]interface{}) {
		gotReq = req
		conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3})
		conn.Write(ctx, websocket.MessageBinary, []byte{4, 5, 6})
		conn.Write(ctx, websocket.MessageText, []byte("EOS"))
	})
	defer server.Close()

	tts := NewSonaraTTS("test-key")
	tts.SetHost("ws", strings.TrimPrefix(server.URL, "http://"))

	params := dialogue.VoiceParams{Rate: 0.8, Pitch: 0.95, Volume: 0.9, Style: "comforting"}

	var audio []byte
	err := tts.StreamSynthesize(context.Background(), "hello", params, func(chunk []byte) error {
		audio = append(audio, chunk...)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(audio) != 6 {
		t.Errorf("expected 6 bytes, got %d", len(audio))
	}

	if gotReq["style"] != "comforting" {
		t.Errorf("expected style to ride along, got %v", gotReq["style"])
	}
	if rate, ok := gotReq["rate"].(float64); !ok || rate != 0.8 {
		t.Errorf("expected rate 0.8, got %v", gotReq["rate"])
	}

	if tts.Name() != "sonara" {
		t.Errorf("expected sonara, got %s", tts.Name())
	}

	tts.Close()
}

func TestSonaraTTSServerError(t *testing.T) {
	server := newTestServer(t, func(ctx context.Context, conn *websocket.Conn, req map[string]interface{}) {
		conn.Write(ctx, websocket.MessageText, []byte("ERR: synthesis failed"))
	})
	defer server.Close()

	tts := NewSonaraTTS("test-key")
	tts.SetHost("ws", strings.TrimPrefix(server.URL, "http://"))

	err := tts.StreamSynthesize(context.Background(), "hello", dialogue.DefaultVoiceParams(), func([]byte) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected error from ERR message")
	}
}

func TestSonaraTTSAbortIsIdempotent(t *testing.T) {
	tts := NewSonaraTTS("test-key")
	if err := tts.Abort(); err != nil {
		t.Errorf("abort with no connection should be a no-op, got %v", err)
	}
	if err := tts.Abort(); err != nil {
		t.Errorf("second abort should also be a no-op, got %v", err)
	}
}
