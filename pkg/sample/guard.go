package sample

import "github.com/ncsfplay/ncsf-player/pkg/sdat"

// WrappedSWAV pads a decoded SWAV's sample buffer with SincWidth guard
// samples on both sides so every interpolation kernel can read
// src[p-SincWidth .. p+SincWidth] without bounds checks (spec.md §4.7
// "SWAV wrapper"): the left pad repeats the first sample, the right pad
// repeats from the loop start if the source loops, else is silence.
type WrappedSWAV struct {
	buf       []float32
	loopLen   int
	sourceLen int
}

// Wrap builds a WrappedSWAV view over a decoded source. It is cheap
// enough to build once per note-on and reuse for the note's lifetime.
func Wrap(swav *sdat.SWAV) *WrappedSWAV {
	if swav == nil || len(swav.Decoded) == 0 {
		return &WrappedSWAV{buf: make([]float32, 2*SincWidth)}
	}
	n := len(swav.Decoded)
	buf := make([]float32, n+2*SincWidth)
	copy(buf[SincWidth:], swav.Decoded)

	first := swav.Decoded[0]
	for i := 0; i < SincWidth; i++ {
		buf[i] = first
	}

	looping := swav.Loop
	loopStart := int(swav.DecodedLoopStart)
	loopLen := int(swav.DecodedLoopLen)
	for i := 0; i < SincWidth; i++ {
		var v float32
		if looping && loopLen > 0 {
			v = swav.Decoded[loopStart+(i%loopLen)]
		}
		buf[SincWidth+n+i] = v
	}

	return &WrappedSWAV{buf: buf, loopLen: loopLen, sourceLen: n}
}

// Samples returns the guard-padded buffer, ready for Interpolate.
func (w *WrappedSWAV) Samples() []float32 { return w.buf }

// Len is the unpadded source length in samples.
func (w *WrappedSWAV) Len() int { return w.sourceLen }

// LoopLen exposes the source's loop length for IncrementSample's
// wraparound arithmetic; RepeatMode on the channel itself (not this
// type) is the authority on whether the source actually loops.
func (w *WrappedSWAV) LoopLen() int { return w.loopLen }
