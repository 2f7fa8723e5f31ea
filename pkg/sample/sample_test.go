package sample

import (
	"math"
	"testing"

	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

func TestInterpolateNoneReturnsNearestSample(t *testing.T) {
	src := Wrap(&sdat.SWAV{Decoded: []float32{0, 1, 0, -1}}).Samples()
	got := Interpolate(None, src, 1, 1)
	if got != 1 {
		t.Fatalf("None at p=1 = %v, want 1", got)
	}
}

func TestInterpolateLinearBlendsNeighbors(t *testing.T) {
	src := Wrap(&sdat.SWAV{Decoded: []float32{0, 1, 0, 0}}).Samples()
	got := Interpolate(Linear, src, 0.5, 1)
	if math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("Linear at p=0.5 between 0 and 1 = %v, want 0.5", got)
	}
}

func TestLagrange4MatchesExactValueAtNode(t *testing.T) {
	src := Wrap(&sdat.SWAV{Decoded: []float32{0, 1, 0, 0, 0}}).Samples()
	got := Interpolate(FourPointLagrange, src, 1, 1)
	if math.Abs(float64(got)-1) > 1e-5 {
		t.Fatalf("4-point Lagrange at an exact node = %v, want 1", got)
	}
}

func TestLagrange6MatchesExactValueAtNode(t *testing.T) {
	// The kernel subtracts 0.5 from frac before evaluating (spec.md
	// §4.7's documented convention), so p=2.5 is what lands exactly on
	// the node at index 2 rather than p=2.
	src := Wrap(&sdat.SWAV{Decoded: []float32{0, 0, 1, 0, 0, 0}}).Samples()
	got := Interpolate(SixPointLagrange, src, 2.5, 1)
	if math.Abs(float64(got)-1) > 1e-5 {
		t.Fatalf("6-point Lagrange at an exact node = %v, want 1", got)
	}
}

func TestWrapPadsLeftWithFirstSample(t *testing.T) {
	w := Wrap(&sdat.SWAV{Decoded: []float32{0.5, 1, 0}})
	buf := w.Samples()
	for i := 0; i < SincWidth; i++ {
		if buf[i] != 0.5 {
			t.Fatalf("left guard[%d] = %v, want 0.5 (first sample)", i, buf[i])
		}
	}
}

func TestWrapPadsRightWithSilenceWhenNotLooping(t *testing.T) {
	w := Wrap(&sdat.SWAV{Decoded: []float32{0.5, 1, 0}, Loop: false})
	buf := w.Samples()
	tail := buf[SincWidth+3:]
	for i, v := range tail {
		if v != 0 {
			t.Fatalf("right guard[%d] = %v, want 0 (non-looping)", i, v)
		}
	}
}

func TestWrapPadsRightFromLoopStartWhenLooping(t *testing.T) {
	w := Wrap(&sdat.SWAV{
		Decoded:          []float32{0.5, 1, 0, -1},
		Loop:             true,
		DecodedLoopStart: 1,
		DecodedLoopLen:   3,
	})
	buf := w.Samples()
	tail := buf[SincWidth+4:]
	want := []float32{1, 0, -1}
	for i := 0; i < len(tail); i++ {
		if tail[i] != want[i%3] {
			t.Fatalf("right guard[%d] = %v, want %v (loop-start repeat)", i, tail[i], want[i%3])
		}
	}
}

func TestGeneratorKillsChannelAtEndOfNonLoopingSample(t *testing.T) {
	swav := &sdat.SWAV{Decoded: []float32{0, 1, 0}, Timer: 1024, Loop: false}
	ch := channel.NewPCMChannel(0, swav, 60, 60, 100, channel.ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 64)
	ch.Reg.VolumeMultiplier = 127
	ch.Reg.SamplePosition = 2.5 // one step from the end

	g := NewGenerator(32000, Linear)
	for i := 0; i < 10 && ch.Active; i++ {
		g.Generate([]*channel.Channel{ch})
	}
	if ch.Active {
		t.Fatal("expected the channel to be killed after running off a non-looping sample")
	}
}

func TestGeneratorWrapsChannelAtEndOfLoopingSample(t *testing.T) {
	swav := &sdat.SWAV{
		Decoded: []float32{0, 1, 0, -1, 0.5},
		Timer:   1024, Loop: true, DecodedLoopStart: 1, DecodedLoopLen: 4,
	}
	ch := channel.NewPCMChannel(0, swav, 60, 60, 100, channel.ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 64)
	ch.Reg.VolumeMultiplier = 127
	ch.Reg.SamplePosition = 4.9

	g := NewGenerator(32000, Linear)
	for i := 0; i < 5; i++ {
		g.Generate([]*channel.Channel{ch})
	}
	if !ch.Active {
		t.Fatal("a looping channel should never be killed by running off the end")
	}
	if ch.Reg.SamplePosition >= 5 {
		t.Fatalf("sample position %v should have wrapped back below the source length 5", ch.Reg.SamplePosition)
	}
}

func TestPSGSquareWaveRespectsDutyThreshold(t *testing.T) {
	ch, err := channel.NewPSGChannel(8, 3, 60, 100, channel.ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 64)
	if err != nil {
		t.Fatal(err)
	}
	ch.Reg.VolumeMultiplier = 127
	ch.Reg.SamplePosition = 0.1 // below duty-index-3 threshold 0.5
	if got := psgSample(ch); got != 1 {
		t.Fatalf("PSG sample at phase 0.1 duty 3 = %v, want +1", got)
	}
	ch.Reg.SamplePosition = 0.9
	if got := psgSample(ch); got != -1 {
		t.Fatalf("PSG sample at phase 0.9 duty 3 = %v, want -1", got)
	}
}

func TestNoiseSampleAdvancesLFSR(t *testing.T) {
	ch, err := channel.NewNoiseChannel(14, 60, 100, channel.ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 64)
	if err != nil {
		t.Fatal(err)
	}
	before := ch.Reg.LFSR
	noiseSample(ch)
	if ch.Reg.LFSR == before {
		t.Fatal("expected noiseSample to advance the LFSR")
	}
}

func TestMixStereoSplitsByPan(t *testing.T) {
	swav := &sdat.SWAV{Decoded: []float32{1, 1, 1, 1}, Timer: 1024}
	ch := channel.NewPCMChannel(0, swav, 60, 60, 127, channel.ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 0)
	ch.Reg.VolumeMultiplier = 127
	ch.Reg.Pan = 0 // full left

	g := NewGenerator(32000, None)
	left, right := g.Generate([]*channel.Channel{ch})
	if left <= 0 {
		t.Fatalf("left = %v, want positive with pan=0 (full left)", left)
	}
	if right != 0 {
		t.Fatalf("right = %v, want 0 with pan=0 (full left)", right)
	}
}
