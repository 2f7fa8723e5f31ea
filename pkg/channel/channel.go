// Package channel emulates one of the DS's 16 hardware sound channels:
// its register bank, ADSR envelope, LFO and sweep (spec.md §3, §4.4).
// A Channel knows nothing about tracks, sequences or the SDAT it reads
// samples from beyond a *sdat.SWAV pointer — the player (pkg/player)
// owns allocation and wires track state into it every tick.
package channel

import (
	"errors"
	"fmt"

	"github.com/ncsfplay/ncsf-player/pkg/sdat"
	"github.com/ncsfplay/ncsf-player/pkg/wave"
)

// Type is the hardware voice kind a channel is configured as.
type Type uint8

const (
	TypePCM Type = iota
	TypePSG
	TypeNoise
)

// RepeatMode mirrors the SWAV/PSG repeat setting in the register bank.
type RepeatMode uint8

const (
	RepeatManual RepeatMode = iota
	RepeatLoop
	RepeatOneShot
)

// DirtyBits records which register-bank fields changed on the last Main
// tick (spec.md §4.4 "Differences since last tick set dirty bits").
type DirtyBits uint8

const (
	DirtyTimer DirtyBits = 1 << iota
	DirtyVolume
	DirtyPan
)

var (
	// ErrInvalidChannelID is returned when a PSG or Noise voice is
	// started on a hardware channel id the format doesn't support.
	ErrInvalidChannelID = errors.New("channel: invalid channel id for voice type")
)

const (
	primerPCM16    = -3
	primerADPCM    = -11
	primerPSGNoise = -1

	psgTimerDefault = 8006
	noiseSeedLFSR   = 0x7FFF
)

// RegisterBank is the hardware-facing state a channel presents: what the
// sample generator (pkg/sample) actually reads to produce output.
type RegisterBank struct {
	VolumeMultiplier uint8
	VolumeDivisor    uint8
	Pan              uint8
	WaveDuty         uint8
	RepeatMode       RepeatMode
	Enabled          bool
	Source           *sdat.SWAV
	Timer            uint16
	SamplePosition   float64
	SampleIncrease   float64
	LFSR             uint16
	Dirty            DirtyBits
}

// Channel is one emulated DS hardware voice (spec.md §3 "Channel runtime
// state").
type Channel struct {
	ID          int
	Active      bool
	JustStarted bool
	AutoSweep   bool
	Type        Type
	Priority    uint8

	env envelope

	MidiKey     uint8
	RootMidiKey uint8
	Velocity    uint8

	UserPan   int32
	UserDecay int32
	UserPitch int32

	SweepPitch   int32
	SweepLength  int32
	SweepCounter int32

	Length int32 // ticks remaining; -1 = untimed

	LFO lfo

	Reg RegisterBank

	rootTimer  uint16
	prevVolume int32
	prevPan    uint8
	prevTimer  uint16
}

// NewPCMChannel starts a PCM voice sourced from a decoded SWAV. Only
// PCM16 and ADPCM sources get a documented primer (spec.md §3); a PCM8
// source starts at sample position 0.
func NewPCMChannel(id int, swav *sdat.SWAV, midiKey, rootKey, velocity uint8, adsr ADSR, pan uint8) *Channel {
	primer := 0.0
	if swav != nil {
		switch swav.Format {
		case wave.FormatIMAADPCM:
			primer = primerADPCM
		case wave.FormatPCM16:
			primer = primerPCM16
		}
	}
	c := newChannel(id, TypePCM, midiKey, rootKey, velocity, adsr, pan)
	c.Reg.Source = swav
	c.Reg.Enabled = true
	c.Reg.SamplePosition = primer
	c.Reg.RepeatMode = RepeatOneShot
	if swav != nil {
		c.Reg.Timer = swav.Timer
		c.rootTimer = swav.Timer
		if swav.Loop {
			c.Reg.RepeatMode = RepeatLoop
		}
	}
	return c
}

// NewPSGChannel starts a PSG square-wave voice. PSG voices are only valid
// on hardware channels 8..13 (spec.md §4.4 "Channel start").
func NewPSGChannel(id int, waveDuty uint8, midiKey, velocity uint8, adsr ADSR, pan uint8) (*Channel, error) {
	if id < 8 || id > 13 {
		return nil, fmt.Errorf("%w: PSG channel %d, want 8..13", ErrInvalidChannelID, id)
	}
	c := newChannel(id, TypePSG, midiKey, midiKey, velocity, adsr, pan)
	c.Reg.WaveDuty = waveDuty
	c.Reg.Enabled = true
	c.Reg.Timer = psgTimerDefault
	c.Reg.SamplePosition = primerPSGNoise
	c.rootTimer = psgTimerDefault
	return c, nil
}

// NewNoiseChannel starts a noise voice, valid only on channels 14 and 15.
func NewNoiseChannel(id int, midiKey, velocity uint8, adsr ADSR, pan uint8) (*Channel, error) {
	if id != 14 && id != 15 {
		return nil, fmt.Errorf("%w: noise channel %d, want 14 or 15", ErrInvalidChannelID, id)
	}
	c := newChannel(id, TypeNoise, midiKey, midiKey, velocity, adsr, pan)
	c.Reg.Enabled = true
	c.Reg.Timer = psgTimerDefault
	c.Reg.SamplePosition = primerPSGNoise
	c.Reg.LFSR = noiseSeedLFSR
	c.rootTimer = psgTimerDefault
	return c, nil
}

func newChannel(id int, typ Type, midiKey, rootKey, velocity uint8, adsr ADSR, pan uint8) *Channel {
	c := &Channel{
		ID:          id,
		Active:      true,
		JustStarted: true,
		Type:        typ,
		MidiKey:     midiKey,
		RootMidiKey: rootKey,
		Velocity:    velocity,
		Length:      -1,
		AutoSweep:   true,
	}
	c.env = newEnvelope(adsr)
	c.Reg.Pan = pan
	c.LFO.reset()
	return c
}

// NoteOff releases the envelope; the channel keeps producing sound (and
// occupying its slot) until the envelope decays past its floor.
func (c *Channel) NoteOff() {
	c.env.release()
}

// Dead reports whether the envelope has finished releasing.
func (c *Channel) Dead() bool {
	return c.env.dead()
}

// Kill immediately silences and frees the channel, used on eviction.
func (c *Channel) Kill() {
	c.Active = false
	c.Reg.Enabled = false
}

// TickSweep advances the pitch sweep by one clock cycle and returns its
// current contribution in 1/64-semitone units (spec.md §4.4 "Sweep").
func (c *Channel) TickSweep() int32 {
	if c.SweepLength <= 0 {
		return 0
	}
	if c.AutoSweep && c.SweepCounter < c.SweepLength {
		c.SweepCounter++
	}
	remaining := c.SweepLength - c.SweepCounter
	if remaining < 0 {
		remaining = 0
	}
	return c.SweepPitch * remaining / c.SweepLength
}

// Main computes the final volume/pitch/pan for this clock cycle from the
// envelope, LFO, sweep and user overrides, and writes the register bank,
// setting dirty bits for whatever changed (spec.md §4.4 "Main tick").
func (c *Channel) Main() {
	envAttenuation := c.env.tick()

	sweep := c.TickSweep()
	lfoOut := c.LFO.tick()

	keyOffset := int32(c.MidiKey) - int32(c.RootMidiKey)
	vol := convertToDeciBel(c.Velocity) + keyOffset*64 + envAttenuation + c.UserDecay
	if c.LFO.Target == LFOVolume {
		vol += lfoOut
	}

	pitch := keyOffset*64 + sweep + c.UserPitch
	if c.LFO.Target == LFOPitch {
		pitch += lfoOut
	}

	pan := int32(c.Reg.Pan)
	if c.LFO.Target == LFOPan {
		pan += lfoOut
	}
	pan += c.UserPan + 0x40
	if pan < 0 {
		pan = 0
	}
	if pan > 127 {
		pan = 127
	}

	mult, div := lookupVolume(vol)
	timer := pitchTimer(c.rootTimer, pitch)
	if c.Type == TypePSG {
		timer &= 0xFFFC
	}

	dirty := DirtyBits(0)
	if timer != c.prevTimer {
		dirty |= DirtyTimer
	}
	if vol != c.prevVolume {
		dirty |= DirtyVolume
	}
	if uint8(pan) != c.prevPan {
		dirty |= DirtyPan
	}

	c.Reg.VolumeMultiplier = mult
	c.Reg.VolumeDivisor = div
	c.Reg.Timer = timer
	c.Reg.Pan = uint8(pan)
	c.Reg.Dirty = dirty

	c.prevVolume = vol
	c.prevPan = uint8(pan)
	c.prevTimer = timer
	c.JustStarted = false
}

// MixedVolume is the tie-breaking "mixed" volume the allocator compares
// (spec.md §4.6 "breaking ties by lower current mixed volume").
func (c *Channel) MixedVolume() int32 {
	shift := [4]uint{0, 1, 2, 4}[c.Reg.VolumeDivisor&3]
	return (int32(c.Reg.VolumeMultiplier) << 4) >> shift
}
