package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zaf/g711"
)

// wavHeaderSize is the size of a canonical PCM WAV header.
const wavHeaderSize = 44

// IsMP3 reports whether data starts like an MPEG audio stream: either an
// ID3v2 tag or an MPEG frame sync word.
func IsMP3(data []byte) bool {
	if len(data) < 3 {
		return false
	}
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// IsWAV reports whether data starts with a RIFF/WAVE container header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// WrapWAV prepends a canonical PCM WAV header to raw 16-bit samples.
func WrapWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// DownsamplePCM16 decimates 16-bit mono PCM by an integer factor. Good
// enough for speech headed to an 8kHz telephony codec; no filtering.
func DownsamplePCM16(pcm []byte, factor int) ([]byte, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("downsample factor must be positive, got %d", factor)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm length %d is not sample-aligned", len(pcm))
	}
	if factor == 1 {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out, nil
	}
	samples := len(pcm) / 2
	out := make([]byte, 0, (samples/factor+1)*2)
	for i := 0; i < samples; i += factor {
		out = append(out, pcm[i*2], pcm[i*2+1])
	}
	return out, nil
}

// EncodeUlaw converts 16-bit LPCM bytes to G.711 µ-law.
func EncodeUlaw(pcm []byte) []byte {
	return g711.EncodeUlaw(pcm)
}

// DecodeUlaw converts G.711 µ-law bytes back to 16-bit LPCM.
func DecodeUlaw(ulaw []byte) []byte {
	return g711.DecodeUlaw(ulaw)
}
