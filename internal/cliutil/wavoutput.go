package cliutil

import "github.com/ncsfplay/ncsf-player/pkg/wavwriter"

// WAVOutput adapts a pkg/wavwriter.Writer to the pkg/audio.Output
// interface, so an audio.Player can render straight to a WAV file
// instead of a live device — the same role the teacher's per-command
// WAVOutput played, now shared by every front end that needs it.
type WAVOutput struct {
	w *wavwriter.Writer
}

// NewWAVOutput creates the destination file up front; the returned
// WAVOutput's Open is a no-op since the format is already fixed.
func NewWAVOutput(filename string, sampleRate int, format wavwriter.Format) (*WAVOutput, error) {
	w, err := wavwriter.Create(filename, sampleRate, format)
	if err != nil {
		return nil, err
	}
	return &WAVOutput{w: w}, nil
}

func (w *WAVOutput) Open(sampleRate, channels, bufferSize int) error { return nil }
func (w *WAVOutput) Close() error                                    { return w.w.Close() }
func (w *WAVOutput) Write(frame []byte) error                        { return w.w.WriteBytes(frame) }
func (w *WAVOutput) IsPlaying() bool                                  { return true }
