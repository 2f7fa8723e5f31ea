package audio

import (
	"errors"
	"io"
	"sync"
	"time"
)

// bytesPerFrame is one interleaved stereo frame of float32LE samples:
// left (4 bytes) + right (4 bytes).
const bytesPerFrame = 8

// Output is a sink for raw float32LE interleaved stereo audio, the format
// pkg/stream.Stream's Read method produces.
type Output interface {
	Open(sampleRate, channels, bufferSize int) error
	Close() error
	Write(frame []byte) error
	IsPlaying() bool
}

// Player drives an Output from any io.Reader of float32LE stereo bytes,
// typically a *stream.Stream.
type Player struct {
	source     io.Reader
	output     Output
	sampleRate int
	bufferSize int
	playing    bool
	paused     bool
	mu         sync.Mutex
	done       chan bool
}

// NewPlayer creates a new audio player reading frames from source and
// writing them to output.
func NewPlayer(source io.Reader, output Output) *Player {
	return &Player{
		source: source,
		output: output,
		done:   make(chan bool),
	}
}

// Start starts audio playback
func (p *Player) Start(sampleRate, bufferSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return errors.New("already playing")
	}

	p.sampleRate = sampleRate
	p.bufferSize = bufferSize

	// Open audio output
	if err := p.output.Open(sampleRate, 2, bufferSize); err != nil {
		return err
	}

	p.playing = true
	go p.audioLoop()

	return nil
}

// Stop stops audio playback
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.mu.Unlock()

	// Wait for audio loop to finish
	<-p.done

	// Close audio output
	p.output.Close()
}

// Pause pauses playback
func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume resumes playback
func (p *Player) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// IsPaused returns true if paused
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// IsPlaying reports whether the audio loop is still running.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// audioLoop is the main audio processing loop
func (p *Player) audioLoop() {
	defer func() {
		p.done <- true
	}()

	buffer := make([]byte, p.bufferSize*bytesPerFrame)

	for {
		p.mu.Lock()
		if !p.playing {
			p.mu.Unlock()
			break
		}
		paused := p.paused
		p.mu.Unlock()

		if paused {
			// Write silence when paused
			for i := range buffer {
				buffer[i] = 0
			}
		} else {
			// Pull the next block of rendered frames from the source
			n, err := io.ReadFull(p.source, buffer)
			if n == 0 {
				p.mu.Lock()
				p.playing = false
				p.mu.Unlock()
				break
			}
			if err != nil && err != io.ErrUnexpectedEOF {
				p.mu.Lock()
				p.playing = false
				p.mu.Unlock()
				break
			}
			if n < len(buffer) {
				for i := n; i < len(buffer); i++ {
					buffer[i] = 0
				}
			}
		}

		// Write to audio output
		if err := p.output.Write(buffer); err != nil {
			// Handle error
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// BufferOutput is a simple buffer-based output for testing
type BufferOutput struct {
	buffer     []byte
	sampleRate int
	channels   int
	mu         sync.Mutex
}

// NewBufferOutput creates a new buffer output
func NewBufferOutput() *BufferOutput {
	return &BufferOutput{}
}

// Open opens the buffer output
func (b *BufferOutput) Open(sampleRate, channels, bufferSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sampleRate = sampleRate
	b.channels = channels
	b.buffer = make([]byte, 0, sampleRate*channels*4*10) // 10 seconds buffer
	return nil
}

// Close closes the buffer output
func (b *BufferOutput) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = nil
	return nil
}

// Write writes a block of float32LE stereo bytes to the buffer
func (b *BufferOutput) Write(frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer == nil {
		return errors.New("buffer not initialized")
	}

	b.buffer = append(b.buffer, frame...)
	return nil
}

// IsPlaying always returns true for buffer output
func (b *BufferOutput) IsPlaying() bool {
	return true
}

// GetBuffer returns the accumulated audio buffer
func (b *BufferOutput) GetBuffer() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]byte, len(b.buffer))
	copy(result, b.buffer)
	return result
}

// Clear clears the buffer
func (b *BufferOutput) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = b.buffer[:0]
}
