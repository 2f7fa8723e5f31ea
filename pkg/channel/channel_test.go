package channel

import (
	"errors"
	"testing"
)

func TestEnvelopeAttackNonDecreasing(t *testing.T) {
	env := newEnvelope(ADSR{Attack: 80, Decay: 60, Sustain: 100, Release: 40})
	prev := env.attenuation
	for i := 0; i < 500 && env.state == EnvelopeAttack; i++ {
		env.tick()
		if env.attenuation < prev {
			t.Fatalf("attack attenuation decreased: %d -> %d", prev, env.attenuation)
		}
		prev = env.attenuation
	}
	if env.state == EnvelopeAttack {
		t.Fatal("envelope never left Attack")
	}
}

func TestEnvelopeDecayNonIncreasingAfterTarget(t *testing.T) {
	env := newEnvelope(ADSR{Attack: 255, Decay: 80, Sustain: 64, Release: 40})
	for i := 0; i < 1000 && env.state != EnvelopeDecay; i++ {
		env.tick()
	}
	if env.state != EnvelopeDecay {
		t.Fatal("envelope never reached Decay")
	}
	target := convertToDeciBel(64) << 7
	prev := env.attenuation
	for i := 0; i < 2000 && env.state == EnvelopeDecay; i++ {
		env.tick()
		if env.attenuation <= target && env.attenuation > prev {
			t.Fatalf("decay attenuation increased past target: %d -> %d", prev, env.attenuation)
		}
		prev = env.attenuation
	}
}

func TestEnvelopeReleaseKillsChannel(t *testing.T) {
	env := newEnvelope(ADSR{Attack: 255, Decay: 255, Sustain: 0, Release: 100})
	env.release()
	for i := 0; i < 10000 && !env.dead(); i++ {
		env.tick()
	}
	if !env.dead() {
		t.Fatal("envelope never died under Release")
	}
}

func TestLookupVolumeBoundaries(t *testing.T) {
	m, d := lookupVolume(0)
	if m != 127 || d != 0 {
		t.Fatalf("lookupVolume(0) = (%d,%d), want (127,0)", m, d)
	}
	// out-of-range inputs clamp rather than panic
	lookupVolume(-10000)
	lookupVolume(10000)
}

func TestMulDiv7FastPath(t *testing.T) {
	if got := MulDiv7(12345, 127); got != 12345 {
		t.Fatalf("MulDiv7 fast path = %d, want 12345", got)
	}
	if got := MulDiv7(256, 64); got != 128 {
		t.Fatalf("MulDiv7(256,64) = %d, want 128", got)
	}
}

func TestNewPSGChannelRejectsBadID(t *testing.T) {
	_, err := NewPSGChannel(3, 2, 60, 100, ADSR{}, 64)
	if !errors.Is(err, ErrInvalidChannelID) {
		t.Fatalf("expected ErrInvalidChannelID, got %v", err)
	}
	ch, err := NewPSGChannel(10, 2, 60, 100, ADSR{}, 64)
	if err != nil {
		t.Fatalf("NewPSGChannel(10, ...): %v", err)
	}
	if ch.Reg.Timer != psgTimerDefault {
		t.Fatalf("PSG timer = %d, want %d", ch.Reg.Timer, psgTimerDefault)
	}
}

func TestNewNoiseChannelRejectsBadID(t *testing.T) {
	if _, err := NewNoiseChannel(0, 60, 100, ADSR{}, 64); !errors.Is(err, ErrInvalidChannelID) {
		t.Fatalf("expected ErrInvalidChannelID, got %v", err)
	}
	ch, err := NewNoiseChannel(15, 60, 100, ADSR{}, 64)
	if err != nil {
		t.Fatalf("NewNoiseChannel(15, ...): %v", err)
	}
	if ch.Reg.LFSR != noiseSeedLFSR {
		t.Fatalf("noise LFSR seed = %#x, want %#x", ch.Reg.LFSR, noiseSeedLFSR)
	}
}

func TestChannelMainSetsDirtyOnFirstTick(t *testing.T) {
	ch, err := NewPSGChannel(8, 2, 60, 100, ADSR{Attack: 255, Decay: 255, Sustain: 127, Release: 255}, 64)
	if err != nil {
		t.Fatalf("NewPSGChannel: %v", err)
	}
	ch.Main()
	if ch.Reg.Dirty == 0 {
		t.Fatal("expected dirty bits set on first Main tick")
	}
	if ch.Reg.Timer&0x3 != 0 {
		t.Fatalf("PSG timer %#x not masked to a multiple of 4", ch.Reg.Timer)
	}
}

func TestMixedVolumeDivisorShift(t *testing.T) {
	ch := &Channel{}
	ch.Reg.VolumeMultiplier = 100
	ch.Reg.VolumeDivisor = 0
	full := ch.MixedVolume()
	ch.Reg.VolumeDivisor = 3
	quiet := ch.MixedVolume()
	if quiet >= full {
		t.Fatalf("higher divisor should reduce mixed volume: full=%d quiet=%d", full, quiet)
	}
}
