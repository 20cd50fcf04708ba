package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestIsMP3(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"id3 tag", []byte("ID3\x04\x00\x00"), true},
		{"frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, true},
		{"wav header", []byte("RIFF....WAVE"), false},
		{"too short", []byte{0xFF}, false},
		{"empty", nil, false},
		{"text", []byte("hello world"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMP3(tt.data); got != tt.want {
				t.Errorf("IsMP3(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestIsWAV(t *testing.T) {
	if !IsWAV([]byte("RIFF\x24\x00\x00\x00WAVEfmt ")) {
		t.Error("IsWAV rejected a RIFF/WAVE header")
	}
	if IsWAV([]byte("RIFF\x24\x00\x00\x00AVI LIST")) {
		t.Error("IsWAV accepted a RIFF container that is not WAVE")
	}
	if IsWAV([]byte("RIFF")) {
		t.Error("IsWAV accepted a truncated header")
	}
}

func TestWrapWAV(t *testing.T) {
	pcm := make([]byte, 32)
	wrapped := WrapWAV(pcm, 8000, 1)

	if !IsWAV(wrapped) {
		t.Fatal("WrapWAV output does not pass IsWAV")
	}
	if len(wrapped) != 44+len(pcm) {
		t.Fatalf("wrapped length = %d, want %d", len(wrapped), 44+len(pcm))
	}
	var rate uint32
	if err := binary.Read(bytes.NewReader(wrapped[24:28]), binary.LittleEndian, &rate); err != nil {
		t.Fatalf("reading sample rate: %v", err)
	}
	if rate != 8000 {
		t.Fatalf("sample rate = %d, want 8000", rate)
	}
	if !bytes.Equal(wrapped[44:], pcm) {
		t.Fatal("payload bytes differ after wrapping")
	}
}

func TestDownsamplePCM16(t *testing.T) {
	// Twelve samples of increasing value at 16 bits each.
	pcm := make([]byte, 0, 24)
	for i := 0; i < 12; i++ {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(i*100))
	}

	out, err := DownsamplePCM16(pcm, 3)
	if err != nil {
		t.Fatalf("DownsamplePCM16: %v", err)
	}
	if len(out) != 8 {
		t.Fatalf("downsampled length = %d bytes, want 8", len(out))
	}
	for i := 0; i < 4; i++ {
		got := binary.LittleEndian.Uint16(out[i*2:])
		want := uint16(i * 3 * 100)
		if got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestDownsamplePCM16Errors(t *testing.T) {
	if _, err := DownsamplePCM16([]byte{0x01, 0x02}, 0); err == nil {
		t.Error("factor 0 accepted")
	}
	if _, err := DownsamplePCM16([]byte{0x01}, 2); err == nil {
		t.Error("odd-length pcm accepted")
	}
}

func TestDownsamplePCM16FactorOneCopies(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := DownsamplePCM16(pcm, 1)
	if err != nil {
		t.Fatalf("DownsamplePCM16: %v", err)
	}
	if !bytes.Equal(out, pcm) {
		t.Fatalf("factor 1 output = %v, want %v", out, pcm)
	}
	out[0] = 0xFF
	if pcm[0] == 0xFF {
		t.Fatal("factor 1 returned the input slice instead of a copy")
	}
}

func TestUlawRoundTrip(t *testing.T) {
	pcm := make([]byte, 0, 32)
	for i := 0; i < 16; i++ {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(i*1000))
	}

	encoded := EncodeUlaw(pcm)
	if len(encoded) != len(pcm)/2 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(pcm)/2)
	}
	decoded := DecodeUlaw(encoded)
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(pcm))
	}
}
