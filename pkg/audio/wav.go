package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NewWavBuffer wraps raw 16-bit mono PCM in a minimal WAV container so it can
// be handed to HTTP transcription collaborators.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// PCMFromWav extracts the raw PCM payload from a mono 16-bit WAV buffer with
// a standard header, the inverse of NewWavBuffer.
func PCMFromWav(wav []byte) ([]byte, error) {
	if len(wav) < 44 || !bytes.HasPrefix(wav, []byte("RIFF")) {
		return nil, fmt.Errorf("not a WAV buffer")
	}
	idx := bytes.Index(wav, []byte("data"))
	if idx < 0 || idx+8 > len(wav) {
		return nil, fmt.Errorf("WAV data chunk not found")
	}
	size := binary.LittleEndian.Uint32(wav[idx+4 : idx+8])
	start := idx + 8
	end := start + int(size)
	if end > len(wav) {
		end = len(wav)
	}
	return wav[start:end], nil
}
