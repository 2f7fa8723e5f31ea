package player

import (
	"fmt"

	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

// NewFromSequenceIndex resolves a sequence by its INFO index and the
// bank/wave-archives/player config its INFO entry points at, and returns
// a ready-to-run Player (spec.md §6 "a reserved block names which
// sequence number to play").
func NewFromSequenceIndex(sd *sdat.SDAT, seqIndex int) (*Player, error) {
	seq, seqInfo, err := sd.ResolveSequence(seqIndex)
	if err != nil {
		return nil, err
	}
	if int(seqInfo.BankIndex) >= len(sd.Info.Banks) {
		return nil, fmt.Errorf("player: sequence %d: bank index %d out of range", seqIndex, seqInfo.BankIndex)
	}
	bankInfo := sd.Info.Banks[seqInfo.BankIndex]
	bank, err := sd.Bank(int(bankInfo.FileID))
	if err != nil {
		return nil, fmt.Errorf("player: sequence %d: %w", seqIndex, err)
	}

	var playerInfo sdat.PlayerInfo
	if int(seqInfo.PlayerIndex) < len(sd.Info.Players) {
		playerInfo = sd.Info.Players[seqInfo.PlayerIndex]
	}
	if playerInfo.ChannelMask == 0 {
		playerInfo.ChannelMask = 0xFFFF
	}

	return New(sd, seq, seqInfo, bank, bankInfo, playerInfo), nil
}

// SequenceMain runs one tempo-timer tick of the sequencer, spec.md §4.6's
// four numbered steps: advance the tempo accumulator; for every whole
// step it crosses, step every track; then push track state into channels
// and tick every channel's envelope/LFO/sweep. §4.6 step 1 (ticking each
// channel's register-sync bits) has no separate pass here; it happens as
// part of each channel's Main() below rather than as its own loop.
func (p *Player) SequenceMain() {
	p.tempoCounter += uint32(p.Tempo) * uint32(p.TempoRatio) / 256
	for p.tempoCounter >= TimerRate {
		p.tempoCounter -= TimerRate
		for _, t := range p.Tracks {
			if t != nil && !t.Ended() {
				t.Step(p)
			}
		}
	}

	for _, t := range p.Tracks {
		if t != nil {
			t.UpdateChannels()
		}
	}
	// Player-level volume (the INFO sequence's default volume plus any
	// MasterVolume opcode issued by a track) layers on top of each
	// track's own Volume/Expression contribution, the same additive
	// dB-deci combination pkg/track uses internally.
	playerOffset := p.SSEQVolume + channel.VolumeToDeciBel(p.MasterVolume)
	for id, ch := range p.Channels {
		if ch == nil {
			continue
		}
		if !ch.Active || ch.Dead() {
			// The channel has either been evicted or has fully released;
			// free its slot so the allocator can reuse it without an
			// eviction (spec.md §4.6 "Channel allocation").
			p.Channels[id] = nil
			p.channelOwner[id] = -1
			continue
		}
		ch.UserDecay += playerOffset
		ch.Main()
	}

	p.Ended = p.allTracksEnded() && p.AllChannelsFinished()
}

func (p *Player) allTracksEnded() bool {
	for id, t := range p.Tracks {
		if t != nil && !t.Ended() {
			return false
		}
		if t == nil && p.trackReserved[id] {
			// Named by AllocateTrack but not yet OpenTrack'd: it hasn't
			// run at all, so the sequence cannot be considered finished.
			return false
		}
	}
	return true
}

// Advance drives SequenceMain from a sample count, following the
// accumulate-then-fire pattern of the teacher's sample-driven update
// loop: accumulate nSamples/sampleRate seconds of playback time against
// the fixed per-cycle duration, firing SequenceMain for every whole
// cycle crossed.
func (p *Player) Advance(nSamples int, sampleRate int) {
	if sampleRate <= 0 {
		return
	}
	p.sampleAccum += float64(nSamples) / float64(sampleRate)
	for p.sampleAccum >= SecondsPerClockCycle {
		p.sampleAccum -= SecondsPerClockCycle
		p.SequenceMain()
	}
}
