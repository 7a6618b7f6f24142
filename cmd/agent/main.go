package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
	"github.com/sonara-ai/sonara-dialogue/pkg/dialogue"
	llmProvider "github.com/sonara-ai/sonara-dialogue/pkg/providers/llm"
	sttProvider "github.com/sonara-ai/sonara-dialogue/pkg/providers/stt"
	ttsProvider "github.com/sonara-ai/sonara-dialogue/pkg/providers/tts"
)

const (
	Channels = 1

	// Utterance segmentation: speech starts above the RMS threshold and ends
	// after this much continuous silence.
	speechThreshold = 0.02
	silenceHold     = 700 * time.Millisecond

	historyCap = 20
)

type utterance struct {
	pcm      []byte
	features audio.VoiceFeatures
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	openaiKey := os.Getenv("OPENAI_API_KEY")
	sonaraKey := os.Getenv("SONARA_API_KEY")
	if openaiKey == "" {
		log.Fatal("Error: OPENAI_API_KEY must be set.")
	}
	if sonaraKey == "" {
		log.Fatal("Error: SONARA_API_KEY must be set.")
	}

	cfg := dialogue.DefaultConfig()
	if path := os.Getenv("DIALOGUE_CONFIG"); path != "" {
		var err error
		cfg, err = dialogue.LoadConfig(path)
		if err != nil {
			log.Fatalf("Error: loading config %s: %v", path, err)
		}
	}

	logger := &dialogue.SlogLogger{L: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	metrics := dialogue.NewMetrics("sonara")
	metricsAddr := os.Getenv("METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	sttModel := os.Getenv("STT_MODEL")
	if sttModel == "" {
		sttModel = "whisper-1"
	}
	llmModel := os.Getenv("LLM_MODEL")
	if llmModel == "" {
		llmModel = "gpt-4o-mini"
	}

	stt := sttProvider.NewWhisperSTT(openaiKey, sttModel)
	stt.SetSampleRate(cfg.SampleRate)
	llm := llmProvider.NewOpenAILLM(openaiKey, llmModel)
	tts := ttsProvider.NewSonaraTTS(sonaraKey)
	defer tts.Close()

	controller := dialogue.NewController(cfg, logger, metrics)
	defer controller.Shutdown()

	monitor := dialogue.NewPlaybackMonitor(cfg, logger, tts, nil, metrics)
	defer monitor.Stop()

	sessionID := uuid.NewString()

	fmt.Printf("Configured: STT=%s | LLM=%s | TTS=%s\n", stt.Name(), llm.Name(), tts.Name())
	fmt.Printf("Sample Rate: %dHz | Session: %s | Metrics: %s/metrics\n", cfg.SampleRate, sessionID, metricsAddr)
	fmt.Println("Dialogue Agent Started! Listening to microphone...")
	fmt.Println("Press Ctrl+C to exit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	utterances := make(chan utterance, 4)

	// Playback buffer fed by monitor chunk events, drained by the device
	// output callback.
	var playbackMu sync.Mutex
	var playbackBytes []byte

	// Utterance accumulation state. All of it is touched only from the
	// device data callback, which malgo serializes.
	var (
		utterPCM    []byte
		utterWindow = audio.NewFeatureWindow(audio.DefaultWindowFrames)
		speaking    bool
		silentSince time.Time
	)

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			// The monitor echo-filters and windows every frame for
			// barge-in intention; feed it unconditionally.
			frame := make([]byte, len(pInput))
			copy(frame, pInput)
			monitor.Observe(frame)

			var sum float64
			for i := 0; i+1 < len(pInput); i += 2 {
				sample := int16(pInput[i]) | (int16(pInput[i+1]) << 8)
				f := float64(sample) / 32768.0
				sum += f * f
			}
			rms := math.Sqrt(sum / float64(len(pInput)/2))

			switch {
			case rms > speechThreshold:
				speaking = true
				silentSince = time.Time{}
				utterPCM = append(utterPCM, frame...)
				utterWindow.Push(audio.AnalyzeFrame(frame, cfg.SampleRate))
			case speaking:
				if silentSince.IsZero() {
					silentSince = time.Now()
				}
				if time.Since(silentSince) >= silenceHold {
					u := utterance{pcm: utterPCM, features: utterWindow.Voice()}
					select {
					case utterances <- u:
						// A completed utterance starts a new turn: cancel
						// any response still playing instead of queueing
						// behind it, and flush its buffered audio.
						monitor.Stop()
						playbackMu.Lock()
						playbackBytes = nil
						playbackMu.Unlock()
					default:
						// Turn loop is behind; drop rather than block
						// the audio callback.
					}
					utterPCM = nil
					utterWindow.Reset()
					speaking = false
				}
			}
		}
		if pOutput != nil {
			playbackMu.Lock()
			n := copy(pOutput, playbackBytes)
			playbackBytes = playbackBytes[n:]
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
			playbackMu.Unlock()
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = Channels
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	go func() {
		for event := range monitor.Events() {
			switch event.Type {
			case dialogue.PlaybackStarted:
				fmt.Println("🔊 [TTS] Speaking...")
			case dialogue.PlaybackChunk:
				chunk := event.Data.([]byte)
				playbackMu.Lock()
				playbackBytes = append(playbackBytes, chunk...)
				playbackMu.Unlock()
			case dialogue.PlaybackYielded:
				decision := event.Data.(dialogue.InterruptionDecision)
				fmt.Printf("🛑 [YIELD] user barged in (resume: %s)\n", decision.Resume)
				playbackMu.Lock()
				playbackBytes = nil
				playbackMu.Unlock()
			case dialogue.PlaybackFinished:
				fmt.Println("✅ [TTS] Done.")
			case dialogue.MonitorError:
				fmt.Printf("❌ [PLAYBACK ERROR] %v\n", event.Data)
			}
		}
	}()

	var history []dialogue.Message

	go func() {
		for u := range utterances {
			fmt.Println("⌛ [STT] Processing...")
			text, err := stt.Transcribe(ctx, u.pcm)
			if err != nil {
				logger.Error("transcription failed", "error", err)
				continue
			}
			if text == "" {
				continue
			}
			fmt.Printf("📝 [TRANSCRIPT] %s\n", text)

			features := u.features
			result, err := controller.ProcessTurn(ctx, sessionID, text, &features)
			if err != nil {
				logger.Error("turn failed", "error", err)
				continue
			}
			fmt.Printf("💭 [TURN] emotion=%s crisis=%s action=%s style=%s\n",
				result.State.Primary, result.Crisis.Level, result.Flow.Action, result.Voice.Style)

			reply, err := llm.Respond(ctx, result.SystemPrompt(), history, text)
			if err != nil {
				logger.Error("response generation failed", "error", err)
				continue
			}

			history = append(history,
				dialogue.Message{Role: "user", Content: text},
				dialogue.Message{Role: "assistant", Content: reply},
			)
			if len(history) > historyCap {
				history = history[len(history)-historyCap:]
			}

			urgency := 0.2
			if result.Escalate {
				urgency = 0.9
			}
			if err := monitor.Play(ctx, result, reply, urgency); err != nil {
				logger.Error("playback failed", "error", err)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")
}
