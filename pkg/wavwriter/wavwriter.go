// Package wavwriter writes canonical RIFF/WAVE files, stereo 16-bit
// integer PCM or stereo 32-bit float PCM with a fact chunk, from the
// float32 interleaved stereo frames pkg/stream.Stream produces
// (spec.md §6 "RIFF WAVE output").
package wavwriter

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Format selects the WAVE sample encoding.
type Format int

const (
	// FormatInt16 writes 16-bit integer PCM (format tag 1).
	FormatInt16 Format = iota
	// FormatFloat32 writes 32-bit float PCM (format tag 3), with an
	// accompanying fact chunk as the format requires.
	FormatFloat32
)

const (
	formatTagPCM   = 1
	formatTagFloat = 3

	riffHeaderSize = 12 // "RIFF" + size + "WAVE"
	fmtChunkSize   = 16
	factChunkSize  = 4
)

// Writer accumulates stereo audio frames and writes a complete RIFF/WAVE
// file to an underlying io.WriteSeeker on Close, backfilling the chunk
// size fields the format requires to be known up front.
type Writer struct {
	w          io.WriteSeeker
	format     Format
	sampleRate int
	written    int64 // frames (stereo pairs) written so far
	closer     io.Closer
}

// Create opens filename and returns a Writer for it at the given sample
// rate and format. The file is truncated if it already exists.
func Create(filename string, sampleRate int, format Format) (*Writer, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("wavwriter: create %s: %w", filename, err)
	}
	w, err := New(f, sampleRate, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// New wraps an already-open io.WriteSeeker (e.g. an *os.File) and writes
// a placeholder header immediately, to be backfilled on Close.
func New(w io.WriteSeeker, sampleRate int, format Format) (*Writer, error) {
	wr := &Writer{w: w, format: format, sampleRate: sampleRate}
	if err := wr.writeHeader(); err != nil {
		return nil, err
	}
	return wr, nil
}

func (w *Writer) dataChunkOffset() int64 {
	off := int64(riffHeaderSize + 8 + fmtChunkSize) // "fmt " chunk header + body
	if w.format == FormatFloat32 {
		off += 8 + factChunkSize // "fact" chunk header + body
	}
	return off
}

func (w *Writer) writeHeader() error {
	formatTag := uint16(formatTagPCM)
	bitsPerSample := uint16(16)
	if w.format == FormatFloat32 {
		formatTag = formatTagFloat
		bitsPerSample = 32
	}

	const channels = 2
	byteRate := uint32(w.sampleRate * channels * int(bitsPerSample/8))
	blockAlign := uint16(channels * int(bitsPerSample/8))

	buf := make([]byte, 0, w.dataChunkOffset()+8)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // filled in on Close
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, fmtChunkSize)
	buf = binary.LittleEndian.AppendUint16(buf, formatTag)
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(w.sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	if w.format == FormatFloat32 {
		buf = append(buf, "fact"...)
		buf = binary.LittleEndian.AppendUint32(buf, factChunkSize)
		buf = binary.LittleEndian.AppendUint32(buf, 0) // sample count, filled in on Close
	}

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // filled in on Close

	_, err := w.w.Write(buf)
	return err
}

// WriteFrames writes interleaved stereo frames (left, right, left,
// right, ...) in the writer's configured format.
func (w *Writer) WriteFrames(left, right []float32) error {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	var buf []byte
	switch w.format {
	case FormatInt16:
		buf = make([]byte, 0, n*4)
		for i := 0; i < n; i++ {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(clip16(left[i]))))
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(clip16(right[i]))))
		}
	case FormatFloat32:
		buf = make([]byte, 0, n*8)
		for i := 0; i < n; i++ {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(left[i]))
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(right[i]))
		}
	default:
		return fmt.Errorf("wavwriter: unknown format %d", w.format)
	}

	if _, err := w.w.Write(buf); err != nil {
		return err
	}
	w.written += int64(n)
	return nil
}

// WriteBytes writes a block of already-encoded raw float32LE stereo
// bytes (pkg/stream.Stream's native Read output), converting to the
// writer's configured format.
func (w *Writer) WriteBytes(frame []byte) error {
	const bytesPerFrame = 8
	n := len(frame) / bytesPerFrame
	left := make([]float32, n)
	right := make([]float32, n)
	for i := 0; i < n; i++ {
		left[i] = math.Float32frombits(binary.LittleEndian.Uint32(frame[i*8:]))
		right[i] = math.Float32frombits(binary.LittleEndian.Uint32(frame[i*8+4:]))
	}
	return w.WriteFrames(left, right)
}

func clip16(v float32) int32 {
	s := v * 32767
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int32(s)
}

// Close backfills the RIFF size, fact sample count, and data chunk size
// fields and closes the underlying writer if Create opened it.
func (w *Writer) Close() error {
	bytesPerFrame := 4
	if w.format == FormatFloat32 {
		bytesPerFrame = 8
	}
	dataSize := w.written * int64(bytesPerFrame)

	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	riffSize := uint32(w.dataChunkOffset() - 8 + 8 + dataSize)
	if err := binary.Write(w.w, binary.LittleEndian, riffSize); err != nil {
		return err
	}

	if w.format == FormatFloat32 {
		factOffset := int64(riffHeaderSize + 8 + fmtChunkSize + 8)
		if _, err := w.w.Seek(factOffset, io.SeekStart); err != nil {
			return err
		}
		if err := binary.Write(w.w, binary.LittleEndian, uint32(w.written*2)); err != nil {
			return err
		}
	}

	if _, err := w.w.Seek(w.dataChunkOffset()+4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return err
	}

	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
