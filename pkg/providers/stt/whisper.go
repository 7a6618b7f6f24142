package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// WhisperSTT transcribes PCM audio through a whisper-compatible
// transcription endpoint.
type WhisperSTT struct {
	apiKey     string
	url        string
	model      string
	language   string
	sampleRate int
	client     *http.Client
}

func NewWhisperSTT(apiKey string, model string) *WhisperSTT {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperSTT{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		sampleRate: 44100,
		client:     http.DefaultClient,
	}
}

// SetEndpoint points the provider at an alternate whisper-compatible API.
func (s *WhisperSTT) SetEndpoint(url string) {
	s.url = url
}

func (s *WhisperSTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

// SetLanguage pins transcription to a language code; empty means auto.
func (s *WhisperSTT) SetLanguage(lang string) {
	s.language = lang
}

func (s *WhisperSTT) Name() string {
	return "whisper"
}

func (s *WhisperSTT) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	wavData := audio.NewWavBuffer(pcm, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return "", err
	}

	if s.language != "" {
		if err := writer.WriteField("language", s.language); err != nil {
			return "", err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wavData); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Text, nil
}
