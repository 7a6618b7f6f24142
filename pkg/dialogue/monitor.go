package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// MonitorEventType tags events emitted by the playback monitor.
type MonitorEventType string

const (
	PlaybackStarted  MonitorEventType = "PLAYBACK_STARTED"
	PlaybackChunk    MonitorEventType = "PLAYBACK_CHUNK"
	PlaybackYielded  MonitorEventType = "PLAYBACK_YIELDED"
	PlaybackFinished MonitorEventType = "PLAYBACK_FINISHED"
	MonitorError     MonitorEventType = "MONITOR_ERROR"
)

// MonitorEvent is one item on the monitor's event channel. Data is a []byte
// for PlaybackChunk, an InterruptionDecision for PlaybackYielded, and a
// string for MonitorError.
type MonitorEvent struct {
	Type      MonitorEventType
	SessionID string
	Data      interface{}
}

// PlaybackMonitor races live microphone input against synthesized playback.
// While Play streams audio out, microphone frames fed through Observe are
// echo-filtered, windowed, and evaluated on every tick; a yield verdict
// cancels playback and aborts synthesis.
type PlaybackMonitor struct {
	cfg     Config
	logger  Logger
	arbiter *InterruptionArbiter
	clock   Clock
	tts     TTSProvider
	metrics *Metrics

	echo *audio.EchoGuard

	// winMu guards window: the microphone feed pushes frames while the
	// tick loop reads intention signals.
	winMu  sync.Mutex
	window *audio.FeatureWindow

	events chan MonitorEvent

	mu           sync.Mutex
	running      bool
	yielded      bool
	cancelPlay   context.CancelFunc
	sentence     string
	bytesPlayed  int
	bytesPlanned int
}

// NewPlaybackMonitor builds a monitor around a synthesis provider. clock and
// metrics may be nil.
func NewPlaybackMonitor(cfg Config, logger Logger, tts TTSProvider, clock Clock, metrics *Metrics) *PlaybackMonitor {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &PlaybackMonitor{
		cfg:     cfg,
		logger:  logger,
		arbiter: NewInterruptionArbiter(cfg, logger),
		clock:   clock,
		tts:     tts,
		metrics: metrics,
		echo:    audio.NewEchoGuard(),
		window:  audio.NewFeatureWindow(audio.DefaultWindowFrames),
		events:  make(chan MonitorEvent, 1024),
	}
}

// Events returns the monitor's event channel.
func (m *PlaybackMonitor) Events() <-chan MonitorEvent {
	return m.events
}

// Observe feeds one microphone frame into the intention window. Frames that
// correlate with recently played audio are treated as echo and dropped.
func (m *PlaybackMonitor) Observe(frame []byte) {
	if m.echo.IsEcho(frame) {
		return
	}
	f := audio.AnalyzeFrame(frame, m.cfg.SampleRate)
	m.winMu.Lock()
	m.window.Push(f)
	m.winMu.Unlock()
}

// Play synthesizes and streams text for a session, watching the microphone
// for barge-in while it runs. It blocks until playback completes, yields, or
// ctx is cancelled. Only one playback may run at a time.
func (m *PlaybackMonitor) Play(ctx context.Context, result TurnResult, text string, urgencyHint float64) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	playCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.yielded = false
	m.cancelPlay = cancel
	m.sentence = text
	m.bytesPlayed = 0
	m.bytesPlanned = estimatePlaybackBytes(text, m.cfg.SampleRate)
	m.mu.Unlock()

	m.winMu.Lock()
	m.window.Reset()
	m.winMu.Unlock()
	m.echo.Reset()

	m.emit(MonitorEvent{Type: PlaybackStarted, SessionID: result.SessionID})

	done := make(chan struct{})
	go m.watch(playCtx, result, urgencyHint, done)

	err := m.tts.StreamSynthesize(playCtx, text, result.Voice, func(chunk []byte) error {
		select {
		case <-playCtx.Done():
			return playCtx.Err()
		default:
		}
		m.mu.Lock()
		m.bytesPlayed += len(chunk)
		m.mu.Unlock()
		m.echo.RecordPlayed(chunk)
		m.emit(MonitorEvent{Type: PlaybackChunk, SessionID: result.SessionID, Data: chunk})
		return nil
	})

	cancel()
	<-done

	m.mu.Lock()
	m.running = false
	m.cancelPlay = nil
	yielded := m.yielded
	m.mu.Unlock()

	if err != nil && playCtx.Err() == nil {
		m.emit(MonitorEvent{Type: MonitorError, SessionID: result.SessionID, Data: fmt.Sprintf("synthesis error: %v", err)})
		return err
	}

	if !yielded {
		m.emit(MonitorEvent{Type: PlaybackFinished, SessionID: result.SessionID})
	}
	return nil
}

// Stop cancels any in-progress playback.
func (m *PlaybackMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancelPlay
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// watch is the monitor's tick loop: one arbiter evaluation per tick until
// playback ends or a yield fires.
func (m *PlaybackMonitor) watch(ctx context.Context, result TurnResult, urgencyHint float64, done chan<- struct{}) {
	defer close(done)

	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		m.winMu.Lock()
		signals := m.window.Intention(urgencyHint)
		m.winMu.Unlock()
		decision := m.arbiter.Evaluate(signals, m.progress(), result.Crisis, result.Engagement)
		if !decision.ShouldYield {
			continue
		}

		if decision.Delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-waitFor(m.clock, decision.Delay):
			}
		}

		m.yield(result.SessionID, decision)
		return
	}
}

func (m *PlaybackMonitor) yield(sessionID string, decision InterruptionDecision) {
	m.mu.Lock()
	m.yielded = true
	cancel := m.cancelPlay
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if m.tts != nil {
		if err := m.tts.Abort(); err != nil {
			m.logger.Warn("synthesis abort failed", "error", err)
		}
	}

	m.drainChunks()
	m.metrics.RecordBargeIn(decision.Resume)
	m.logger.Info("playback yielded",
		"sessionID", sessionID,
		"confidence", decision.Confidence,
		"resume", string(decision.Resume))
	m.emit(MonitorEvent{Type: PlaybackYielded, SessionID: sessionID, Data: decision})
}

// progress estimates how far through the current sentence playback is, from
// bytes streamed against the expected total.
func (m *PlaybackMonitor) progress() PlaybackProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	frac := 1.0
	if m.bytesPlanned > 0 {
		frac = clampUnit(float64(m.bytesPlayed) / float64(m.bytesPlanned))
	}
	return PlaybackProgress{Sentence: m.sentence, SentenceProgress: frac}
}

func (m *PlaybackMonitor) emit(ev MonitorEvent) {
	// Chunk events may be dropped under pressure; control events may not.
	if ev.Type == PlaybackChunk {
		select {
		case m.events <- ev:
		default:
		}
		return
	}
	m.events <- ev
}

// drainChunks removes pending chunk events so a yield is seen by the
// consumer without first flushing stale audio.
func (m *PlaybackMonitor) drainChunks() {
	var control []MonitorEvent
DrainLoop:
	for {
		select {
		case ev := <-m.events:
			if ev.Type != PlaybackChunk {
				control = append(control, ev)
			}
		default:
			break DrainLoop
		}
	}
	for _, ev := range control {
		select {
		case m.events <- ev:
		default:
		}
	}
}

// estimatePlaybackBytes guesses the synthesized length of text: roughly 15
// characters of speech per second at 16-bit mono.
func estimatePlaybackBytes(text string, sampleRate int) int {
	seconds := float64(len(strings.TrimSpace(text))) / 15.0
	return int(seconds * float64(sampleRate) * 2)
}

func waitFor(c Clock, d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		t := c.NewTicker(d)
		defer t.Stop()
		<-t.C()
		close(ch)
	}()
	return ch
}
