package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestBufferOutputAccumulatesWrittenFrames(t *testing.T) {
	b := NewBufferOutput()
	if err := b.Open(44100, 2, 512); err != nil {
		t.Fatalf("Open: %v", err)
	}
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := b.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := b.GetBuffer()
	want := append(append([]byte{}, frame...), frame...)
	if !bytes.Equal(got, want) {
		t.Fatalf("GetBuffer() = %v, want %v", got, want)
	}
}

func TestBufferOutputClearEmptiesWithoutReallocating(t *testing.T) {
	b := NewBufferOutput()
	b.Open(44100, 2, 512)
	b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b.Clear()
	if len(b.GetBuffer()) != 0 {
		t.Fatalf("expected empty buffer after Clear")
	}
}

func TestBufferOutputWriteAfterCloseFails(t *testing.T) {
	b := NewBufferOutput()
	b.Open(44100, 2, 512)
	b.Close()
	if err := b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err == nil {
		t.Fatal("expected Write after Close to fail")
	}
}

func TestPlayerDrainsSourceIntoOutputUntilEOF(t *testing.T) {
	frames := 4
	source := bytes.NewReader(make([]byte, frames*bytesPerFrame))
	out := NewBufferOutput()
	p := NewPlayer(source, out)

	if err := p.Start(8000, frames); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(time.Second)
	for out.IsPlaying() && len(out.GetBuffer()) < frames*bytesPerFrame {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for audioLoop to drain the source")
		case <-time.After(time.Millisecond):
		}
	}
	p.Stop()

	if got := len(out.GetBuffer()); got != frames*bytesPerFrame {
		t.Fatalf("buffered %d bytes, want %d", got, frames*bytesPerFrame)
	}
}

func TestPlayerPauseWritesSilenceInstead(t *testing.T) {
	source := bytes.NewReader(bytes.Repeat([]byte{0xFF}, 100*bytesPerFrame))
	out := NewBufferOutput()
	p := NewPlayer(source, out)
	p.Pause()
	p.Start(8000, 10)
	if !p.IsPaused() {
		t.Fatal("expected IsPaused() true after Pause")
	}
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	for _, b := range out.GetBuffer() {
		if b != 0 {
			t.Fatal("expected only silence while paused, found a nonzero byte")
		}
	}
}
