package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sonara-ai/sonara-dialogue/pkg/dialogue"
)

// SonaraTTS streams synthesized speech over a persistent websocket. Delivery
// parameters ride along with every request so the voice tracks the caller's
// emotional mapping turn by turn.
type SonaraTTS struct {
	apiKey string
	host   string
	scheme string
	mu     sync.Mutex
	conn   *websocket.Conn
}

func NewSonaraTTS(apiKey string) *SonaraTTS {
	return &SonaraTTS{
		apiKey: apiKey,
		host:   "api.sonara.ai",
		scheme: "wss",
	}
}

// SetHost overrides the synthesis endpoint, mainly for tests.
func (t *SonaraTTS) SetHost(scheme, host string) {
	t.scheme = scheme
	t.host = host
}

func (t *SonaraTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: t.scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to synthesis service: %w", err)
	}

	conn.SetReadLimit(10 * 1024 * 1024)

	t.conn = conn
	return conn, nil
}

func (t *SonaraTTS) Synthesize(ctx context.Context, text string, params dialogue.VoiceParams) ([]byte, error) {
	var audio []byte
	err := t.StreamSynthesize(ctx, text, params, func(chunk []byte) error {
		audio = append(audio, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (t *SonaraTTS) StreamSynthesize(ctx context.Context, text string, params dialogue.VoiceParams, onChunk func([]byte) error) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]interface{}{
		"text":   text,
		"rate":   params.Rate,
		"pitch":  params.Pitch,
		"volume": params.Volume,
		"style":  params.Style,
	}

	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return fmt.Errorf("failed to read from synthesis service: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("synthesis error: %s", msg)
			}
		}
	}
}

func (t *SonaraTTS) Name() string {
	return "sonara"
}

func (t *SonaraTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}

// Abort forces any in-progress synthesis to stop immediately by closing the
// underlying websocket connection. The playback monitor calls this when a
// barge-in yields the floor.
func (t *SonaraTTS) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		// close with abnormal closure so any blocked reads/writes unblock
		err := t.conn.Close(websocket.StatusAbnormalClosure, "abort")
		t.conn = nil
		return err
	}
	return nil
}
