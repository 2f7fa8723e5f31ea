package sample

import (
	"math"

	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

// ARM7Clock is the DS's fixed system clock in Hz, the numerator of
// IncrementSample's step formula (spec.md §4.7).
const ARM7Clock = 33_514_000

// divisorScale maps a channel's volume-divisor code to its linear gain
// (spec.md §4.7's divisor table {1:×½, 2:×¼, 3:×1⁄16}; divisor 0 is ×1,
// implied by the volume model in spec.md §4.4).
var divisorScale = [4]float32{1, 0.5, 0.25, 1.0 / 16}

// mulDiv7 is pkg/channel.MulDiv7's float counterpart: x*m/128 with the
// m=127 fast path spec.md §4.4 calls out, applied here to a float
// sample instead of a register value.
func mulDiv7(x float32, m uint8) float32 {
	if m == 127 {
		return x
	}
	return x * float32(m) / 128
}

// dutyTable holds the eight PSG duty-cycle thresholds (spec.md §4.7
// "PSG: table lookup of wave-duty"); a phase below the threshold emits
// +1, at or above emits −1, matching a standard DS PSG square generator.
var dutyTable = [8]float64{0.125, 0.25, 0.375, 0.5, 0.625, 0.75, 0.875, 0.0}

// Generator advances every active channel by one output sample and
// mixes them to stereo (spec.md §4.7 steps 1-3). It owns a small cache
// of guard-padded SWAV views so repeated notes on the same instrument
// don't re-wrap the same decoded buffer every sample.
type Generator struct {
	SampleRate int
	wraps      map[*sdat.SWAV]*WrappedSWAV
	Kind       Kind
}

// NewGenerator builds a Generator targeting the given output sample
// rate R (spec.md §4.7 "Per output sample at the sink rate R").
func NewGenerator(sampleRate int, kind Kind) *Generator {
	return &Generator{SampleRate: sampleRate, wraps: make(map[*sdat.SWAV]*WrappedSWAV), Kind: kind}
}

func (g *Generator) wrap(swav *sdat.SWAV) *WrappedSWAV {
	if w, ok := g.wraps[swav]; ok {
		return w
	}
	w := Wrap(swav)
	g.wraps[swav] = w
	return w
}

// Generate produces one stereo output sample from the given channel set,
// advancing each channel's phase and killing any PCM channel that runs
// off the end of a non-looping source (spec.md §4.7 steps 1-2).
func (g *Generator) Generate(channels []*channel.Channel) (left, right float32) {
	for _, ch := range channels {
		if ch == nil || !ch.Active {
			continue
		}
		var raw float32
		if ch.Reg.Enabled {
			raw = g.rawSample(ch)
		}

		scaled := mulDiv7(raw, ch.Reg.VolumeMultiplier) * divisorScale[ch.Reg.VolumeDivisor&3]
		pan := int32(ch.Reg.Pan)
		left += mulDiv7(scaled, uint8(127-pan))
		right += mulDiv7(scaled, uint8(pan))

		g.incrementSample(ch)
	}
	return left, right
}

func (g *Generator) rawSample(ch *channel.Channel) float32 {
	switch ch.Type {
	case channel.TypePSG:
		return psgSample(ch)
	case channel.TypeNoise:
		return noiseSample(ch)
	default:
		return g.pcmSample(ch)
	}
}

func (g *Generator) pcmSample(ch *channel.Channel) float32 {
	if ch.Reg.Source == nil {
		return 0
	}
	w := g.wrap(ch.Reg.Source)
	return Interpolate(g.Kind, w.Samples(), ch.Reg.SamplePosition, ch.Reg.SampleIncrease)
}

func psgSample(ch *channel.Channel) float32 {
	phase := ch.Reg.SamplePosition - math.Floor(ch.Reg.SamplePosition)
	if phase < dutyTable[ch.Reg.WaveDuty&7] {
		return 1
	}
	return -1
}

func noiseSample(ch *channel.Channel) float32 {
	out := float32(1)
	if ch.Reg.LFSR&1 == 1 {
		out = -1
	}
	if ch.Reg.LFSR&1 == 1 {
		ch.Reg.LFSR = (ch.Reg.LFSR >> 1) ^ 0x6000
	} else {
		ch.Reg.LFSR >>= 1
	}
	return out
}

// incrementSample advances samplePosition by sampleIncrease regardless
// of mute (spec.md §4.7 step 2), handling PCM loop wraparound and
// end-of-sample termination; PSG/Noise channels have no fixed length and
// simply keep advancing phase.
func (g *Generator) incrementSample(ch *channel.Channel) {
	timer := ch.Reg.Timer
	if timer == 0 {
		return
	}
	ch.Reg.SampleIncrease = float64(ARM7Clock) / (2 * float64(g.SampleRate)) / float64(timer)
	ch.Reg.SamplePosition += ch.Reg.SampleIncrease

	if ch.Type != channel.TypePCM || ch.Reg.Source == nil {
		return
	}
	w := g.wrap(ch.Reg.Source)
	length := float64(w.Len())
	if ch.Reg.SamplePosition < length {
		return
	}
	if ch.Reg.RepeatMode == channel.RepeatLoop && w.LoopLen() > 0 {
		for ch.Reg.SamplePosition >= length {
			ch.Reg.SamplePosition -= float64(w.LoopLen())
		}
		return
	}
	ch.Kill()
}
