// Package stream implements the blocking pull-source output driver
// (spec.md §4.8, C8): skip-silence-on-start, volume/ReplayGain/clip,
// length+fade windowing, and forward-seek, layered on top of
// pkg/player's scheduler and pkg/sample's generator.
//
// Everything here is synchronous (spec.md §5 "Suspension points: none");
// Read is a plain computation that drives the player one output frame
// at a time until it has produced the requested byte count or reached
// end of stream.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/ncsfplay/ncsf-player/pkg/player"
	"github.com/ncsfplay/ncsf-player/pkg/sample"
)

const bytesPerFrame = 8 // two float32 channels, little-endian

// silenceLevel is the skip-silence-on-start detector's flatness
// tolerance (spec.md §4.8 "Skip-silence-on-start": `|s − prev − bias| ≤
// 2*level`). Both sides of that comparison carry the same decoder DC
// bias, so it cancels and the test reduces to a plain "is this sample
// within level of the previous one" flatness check; silenceLevel is
// already expressed in the [-1,1] float domain pkg/sample emits.
const silenceLevel = 0.000213623

type stereoFrame struct {
	left, right float32
}

// Options configures a Stream's output format and post-processing.
type Options struct {
	SampleRate int
	Kind       sample.Kind

	// SkipSilenceSeconds is how many whole seconds of contiguous
	// near-silence at the start cause the accumulated lead-in to be
	// discarded; 0 disables the skip entirely.
	SkipSilenceSeconds int

	// UserVolume and ReplayGainDeciBel combine into volumeModification
	// (spec.md §4.8 "Volume and clipping"); ReplayGainEnabled selects
	// whether the ReplayGain term participates at all.
	UserVolume        float64
	ReplayGainDeciBel float64
	ReplayGainEnabled bool
	PeakScale         float64 // clamp applied on top of the gain, 0 = unclamped

	// PlayForever disables length/fade/seek entirely (spec.md §4.8).
	PlayForever   bool
	LengthSamples int64
	FadeSamples   int64
}

// Stream is one playback session: a Player being advanced one output
// frame at a time, mixed through a Generator, and post-processed.
type Stream struct {
	Player    *player.Player
	Generator *sample.Generator
	opts      Options

	volumeModification float64

	position int64 // post-processed frames emitted so far

	skipping         bool
	silenceCountdown int
	silenceRun       float64
	prevFrame        stereoFrame
	staged           []stereoFrame // frames held back during the skip resolution

	ended bool
}

// New builds a Stream ready to Read from the beginning of p.
func New(p *player.Player, opts Options) *Stream {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 32000
	}
	s := &Stream{
		Player:    p,
		Generator: sample.NewGenerator(opts.SampleRate, opts.Kind),
		opts:      opts,
	}
	s.volumeModification = computeVolumeModification(opts)
	s.silenceCountdown = opts.SkipSilenceSeconds
	s.skipping = opts.SkipSilenceSeconds > 0
	return s
}

func computeVolumeModification(opts Options) float64 {
	gain := opts.UserVolume
	if gain == 0 {
		gain = 1
	}
	if opts.ReplayGainEnabled {
		gain *= math.Pow(10, opts.ReplayGainDeciBel/20)
	}
	if opts.PeakScale > 0 && gain*opts.PeakScale > 1 {
		gain = 1 / opts.PeakScale
	}
	return gain
}

// generateRaw advances the player by one output frame and mixes it,
// with no post-processing applied.
func (s *Stream) generateRaw() stereoFrame {
	s.Player.Advance(1, s.opts.SampleRate)
	l, r := s.Generator.Generate(s.Player.Channels[:])
	return stereoFrame{l, r}
}

func (s *Stream) isSilent(f stereoFrame) bool {
	return math.Abs(float64(f.left-s.prevFrame.left)) <= 2*silenceLevel &&
		math.Abs(float64(f.right-s.prevFrame.right)) <= 2*silenceLevel
}

// resolveSkip runs the skip-silence-on-start pass to completion
// (spec.md §4.8 "Skip-silence-on-start"): generated frames accumulate
// in s.staged while skipping is active. A whole second of continuous
// near-silence decrements the countdown; reaching zero discards
// everything staged so far and ends the skip. The first non-silent
// frame also ends the skip, keeping everything staged.
func (s *Stream) resolveSkip() {
	for s.skipping {
		f := s.generateRaw()
		silent := s.isSilent(f)
		s.prevFrame = f
		s.staged = append(s.staged, f)

		if !silent {
			s.skipping = false
			return
		}
		s.silenceRun += 1.0 / float64(s.opts.SampleRate)
		if s.silenceRun < 1.0 {
			continue
		}
		s.silenceRun = 0
		s.silenceCountdown--
		if s.silenceCountdown <= 0 {
			s.staged = s.staged[:0]
			s.skipping = false
			return
		}
	}
}

// nextFrame returns the next post-processed frame, or done=true at
// end-of-stream.
func (s *Stream) nextFrame() (f stereoFrame, done bool) {
	if s.skipping {
		s.resolveSkip()
	}
	var raw stereoFrame
	if len(s.staged) > 0 {
		raw = s.staged[0]
		s.staged = s.staged[1:]
	} else {
		raw = s.generateRaw()
	}
	return s.postProcess(raw)
}

// postProcess implements spec.md §4.8 steps 2-3: scale by
// volumeModification, clamp to [-1,1], then apply the length+fade
// window.
func (s *Stream) postProcess(raw stereoFrame) (stereoFrame, bool) {
	l := clip(raw.left * float32(s.volumeModification))
	r := clip(raw.right * float32(s.volumeModification))

	if s.opts.PlayForever {
		s.position++
		return stereoFrame{l, r}, false
	}

	total := s.opts.LengthSamples + s.opts.FadeSamples
	// When fading, the window runs one sample past total so the
	// scale==0 sample (the true silent end of the fade) is actually
	// emitted instead of being skipped by the end-of-stream check.
	lastEmittable := total
	if s.opts.FadeSamples > 0 {
		lastEmittable = total + 1
	}
	i := s.position
	if i >= lastEmittable {
		return stereoFrame{}, true
	}
	if i >= s.opts.LengthSamples && s.opts.FadeSamples > 0 {
		scale := float64(total-i) * 65536 / float64(s.opts.FadeSamples)
		factor := scale * math.Pow(2, -16)
		l = float32(float64(l) * factor)
		r = float32(float64(r) * factor)
	}
	s.position++
	return stereoFrame{l, r}, false
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Read fills buf with little-endian float32 stereo interleaved bytes
// (spec.md §4.8), returning io.EOF once the stream has ended. buf is
// filled with the largest whole number of frames that fit in it.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.ended {
		return 0, io.EOF
	}
	n := len(buf) / bytesPerFrame
	written := 0
	for i := 0; i < n; i++ {
		f, done := s.nextFrame()
		if done {
			s.ended = true
			break
		}
		binary.LittleEndian.PutUint32(buf[written:], math.Float32bits(f.left))
		binary.LittleEndian.PutUint32(buf[written+4:], math.Float32bits(f.right))
		written += bytesPerFrame
	}
	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// ErrBackwardSeekUnsupported is returned by Seek for a target behind
// the current position; a backward seek requires restarting the player
// from scratch (spec.md §4.8 "Seek"), which only the caller can do since
// building a Player is pkg/player's responsibility, not pkg/stream's.
var ErrBackwardSeekUnsupported = errors.New("stream: backward seek requires a new Stream over a freshly-built Player")

// ErrSeekNotSupported is returned by Seek when the stream was
// configured PlayForever (spec.md §4.8 "Seek (only when not
// playForever)").
var ErrSeekNotSupported = errors.New("stream: seek not supported in playForever mode")

// Position returns the number of post-processed frames emitted so far,
// for a caller (spec.md §1's outer command-line front-end) that wants
// to show playback progress against a known length.
func (s *Stream) Position() int64 {
	return s.position
}

// Seek advances playback to an absolute sample offset. A forward seek
// reads through a discard buffer in 4 KiB chunks (spec.md §4.8); a
// backward target is rejected, matching the documented restart-from-
// scratch seek semantics for which this package has no player state to
// rewind on its own.
func (s *Stream) Seek(targetSample int64) error {
	if s.opts.PlayForever {
		return ErrSeekNotSupported
	}
	if targetSample < s.position {
		return ErrBackwardSeekUnsupported
	}
	discard := make([]byte, 4096)
	for s.position < targetSample {
		chunk := discard
		if remaining := (targetSample - s.position) * bytesPerFrame; remaining < int64(len(chunk)) {
			chunk = discard[:remaining]
		}
		n, err := s.Read(chunk)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
