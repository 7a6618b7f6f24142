package audio

import (
	"testing"
)

func TestEchoGuardDetectsPlayedAudio(t *testing.T) {
	g := NewEchoGuard()
	tone := sinePCM(220, 0.5, 44100, 4096)

	g.RecordPlayed(tone)

	// The exact audio we just played should read as echo.
	if !g.IsEcho(tone[:2048]) {
		t.Error("expected played audio to be classified as echo")
	}
}

func TestEchoGuardPassesUnrelatedAudio(t *testing.T) {
	g := NewEchoGuard()
	g.RecordPlayed(sinePCM(220, 0.5, 44100, 4096))

	// A very different signal should not correlate.
	other := sinePCM(3500, 0.5, 44100, 2048)
	if g.IsEcho(other) {
		t.Error("unrelated audio should not be classified as echo")
	}
}

func TestEchoGuardNoPlayback(t *testing.T) {
	g := NewEchoGuard()
	if g.IsEcho(sinePCM(220, 0.5, 44100, 1024)) {
		t.Error("no echo possible before anything was played")
	}
}

func TestEchoGuardResetClearsReference(t *testing.T) {
	g := NewEchoGuard()
	tone := sinePCM(220, 0.5, 44100, 4096)
	g.RecordPlayed(tone)
	g.Reset()
	if g.IsEcho(tone[:2048]) {
		t.Error("reset should clear the reference buffer")
	}
}

func TestEchoGuardDisabled(t *testing.T) {
	g := NewEchoGuard()
	tone := sinePCM(220, 0.5, 44100, 4096)
	g.RecordPlayed(tone)
	g.SetEnabled(false)
	if g.IsEcho(tone[:2048]) {
		t.Error("disabled guard should never flag echo")
	}
}
