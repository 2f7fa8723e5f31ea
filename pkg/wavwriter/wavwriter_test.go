package wavwriter

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
)

func mustFloat32Bits(v float32) uint32 {
	return math.Float32bits(v)
}

// seekBuffer adapts a bytes.Buffer into an io.WriteSeeker for tests,
// since os.File is awkward to exercise without touching the filesystem.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.data)) + offset
	}
	return s.pos, nil
}

func TestInt16HeaderDeclaresFormatTagOne(t *testing.T) {
	buf := &seekBuffer{}
	w, err := New(buf, 44100, FormatInt16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteFrames([]float32{0.5, -0.5}, []float32{0.25, -0.25}); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := buf.data
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE markers")
	}
	formatTag := binary.LittleEndian.Uint16(data[20:22])
	if formatTag != 1 {
		t.Fatalf("format tag = %d, want 1 (PCM)", formatTag)
	}
	bits := binary.LittleEndian.Uint16(data[34:36])
	if bits != 16 {
		t.Fatalf("bits per sample = %d, want 16", bits)
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != 2*4 { // 2 frames * 4 bytes/frame (int16 stereo)
		t.Fatalf("data chunk size = %d, want 8", dataSize)
	}
}

func TestFloat32HeaderIncludesFactChunk(t *testing.T) {
	buf := &seekBuffer{}
	w, err := New(buf, 48000, FormatFloat32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteFrames([]float32{0.5}, []float32{-0.5}); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := buf.data
	if !bytes.Equal(data[36:40], []byte("fact")) {
		t.Fatalf("expected a fact chunk at offset 36 for float32 format, got %q", data[36:40])
	}
	factSamples := binary.LittleEndian.Uint32(data[44:48])
	if factSamples != 2 { // 1 stereo frame = 2 samples
		t.Fatalf("fact sample count = %d, want 2", factSamples)
	}
	formatTag := binary.LittleEndian.Uint16(data[20:22])
	if formatTag != 3 {
		t.Fatalf("format tag = %d, want 3 (float)", formatTag)
	}
}

func TestWriteFramesClipsInt16Overflow(t *testing.T) {
	buf := &seekBuffer{}
	w, _ := New(buf, 44100, FormatInt16)
	w.WriteFrames([]float32{2.0}, []float32{-2.0})
	w.Close()

	dataStart := int(w.dataChunkOffset()) + 8
	left := int16(binary.LittleEndian.Uint16(buf.data[dataStart : dataStart+2]))
	right := int16(binary.LittleEndian.Uint16(buf.data[dataStart+2 : dataStart+4]))
	if left != 32767 {
		t.Fatalf("left = %d, want clipped to 32767", left)
	}
	if right != -32768 {
		t.Fatalf("right = %d, want clipped to -32768", right)
	}
}

func TestWriteBytesMatchesWriteFrames(t *testing.T) {
	bufA := &seekBuffer{}
	wa, _ := New(bufA, 44100, FormatInt16)
	wa.WriteFrames([]float32{0.25, 0.5}, []float32{-0.25, -0.5})
	wa.Close()

	bufB := &seekBuffer{}
	wb, _ := New(bufB, 44100, FormatInt16)
	frame := make([]byte, 16)
	binary.LittleEndian.PutUint32(frame[0:4], mustFloat32Bits(0.25))
	binary.LittleEndian.PutUint32(frame[4:8], mustFloat32Bits(-0.25))
	binary.LittleEndian.PutUint32(frame[8:12], mustFloat32Bits(0.5))
	binary.LittleEndian.PutUint32(frame[12:16], mustFloat32Bits(-0.5))
	wb.WriteBytes(frame)
	wb.Close()

	if !bytes.Equal(bufA.data, bufB.data) {
		t.Fatalf("WriteBytes output diverged from WriteFrames output")
	}
}
