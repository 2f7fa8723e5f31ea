// Package track interprets one SSEQ cooperating track: its opcode
// stream, call/loop stack, variables-via-host, and the note/channel
// handoff into pkg/channel (spec.md §3 "Track runtime state", §4.5).
//
// A Track owns no channels directly — it asks its Host to allocate a
// hardware channel id and then hands that channel the instrument's ADSR
// and the note's key/velocity. What it remembers about "its" channels is
// a map from the ids it started to those channels, so it can decrement
// note lengths and service NoteFinishWait.
package track

import "github.com/ncsfplay/ncsf-player/pkg/channel"

// TrackFlags mirrors spec.md §3's flag set.
type TrackFlags uint16

const (
	FlagActive TrackFlags = 1 << iota
	FlagNoteWait
	FlagTie
	FlagNoteFinishWait
	FlagPortamento
	FlagCompare
)

const maxStackDepth = 3

// frame is one call/loop-stack entry; Call frames have isLoop=false and
// an unused loopCount.
type frame struct {
	pos       int
	loopCount int
	isLoop    bool
}

// Track is one of up to 16 cooperating SSEQ tracks (spec.md §3).
type Track struct {
	ID    int
	base  []byte
	pos   int
	wait  int32
	flags TrackFlags

	Volume     uint8
	Expression uint8
	Pan        uint8
	PitchBend  int8
	BendRange  uint8
	Transpose  int8

	adsrOverride    channel.ADSR
	hasADSROverride [4]bool // Attack, Decay, Sustain, Release

	Program int

	PortamentoKey  uint8
	PortamentoTime uint8
	SweepPitch     int16

	ModType    channel.LFOTarget
	ModDepth   uint8
	ModSpeed   uint8
	ModRange   uint8
	ModDelay   uint16

	Priority uint8
	Mute     bool

	callStack [maxStackDepth]frame
	callDepth int

	Channels   map[int]*channel.Channel
	tieChannel *channel.Channel

	ended bool
}

// NewTrack starts a track at an absolute byte offset into data, the
// bytes of its owning SSEQ (spec.md §4.6 "Track allocation").
func NewTrack(id int, data []byte, startOffset int) *Track {
	return &Track{
		ID:         id,
		base:       data,
		pos:        startOffset,
		flags:      FlagActive,
		Volume:     127,
		Expression: 127,
		Pan:        64,
		BendRange:  2,
		Priority:   64,
		Channels:   make(map[int]*channel.Channel),
	}
}

// Ended reports whether the track has executed End, or run off the end
// of a truncated stream.
func (t *Track) Ended() bool {
	return t.ended
}

func (t *Track) setFlag(bit TrackFlags, on bool) {
	if on {
		t.flags |= bit
	} else {
		t.flags &^= bit
	}
}

func clamp8(v, lo, hi int32) uint8 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return uint8(v)
}

func wrap16(v int32) int16 {
	return int16(uint16(v))
}

// effectiveADSR merges the track's ADSR override bytes (set piecemeal by
// the Attack/Decay/Sustain/Release opcodes) over an instrument
// definition's own values.
func (t *Track) effectiveADSR(def channel.ADSR) channel.ADSR {
	out := def
	if t.hasADSROverride[0] {
		out.Attack = t.adsrOverride.Attack
	}
	if t.hasADSROverride[1] {
		out.Decay = t.adsrOverride.Decay
	}
	if t.hasADSROverride[2] {
		out.Sustain = t.adsrOverride.Sustain
	}
	if t.hasADSROverride[3] {
		out.Release = t.adsrOverride.Release
	}
	return out
}
