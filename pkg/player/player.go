// Package player implements the cooperative tick loop that drives a
// sequence's tracks and channels (spec.md §4.6, C6): tempo accounting,
// channel allocation by fixed priority order, and the per-cycle
// UpdateChannel/Main ordering that the stream driver (pkg/stream) and the
// timing variant run through Advance once enough output samples have
// accumulated.
//
// Player implements track.Host itself rather than exposing its tracks
// and channels through a second indirection layer — the "pass the
// player by reference into every step" option spec.md §9 offers instead
// of a `(player-id, slot-index)` back-reference table, since this
// module has exactly one player per playing sequence.
package player

import (
	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
	"github.com/ncsfplay/ncsf-player/pkg/track"
)

// SecondsPerClockCycle is the fixed ARM7-derived tick interval
// (spec.md §4.6, Glossary "Clock cycle"): 64*2728/33_514_000 s.
const SecondsPerClockCycle = 64.0 * 2728.0 / 33_514_000.0

// TimerRate is the fixed divisor tempo accounting runs against
// (spec.md §4.6 "tempoCounter += tempo*tempoRatio/256; while
// tempoCounter >= TimerRate, ... step all tracks one tick").
const TimerRate = 240

const numChannels = 16
const numTracks = 16
const numVariables = 32

// channelPriorityOrder is the fixed scan order the allocator walks
// (spec.md §4.6 "Channel allocation").
var channelPriorityOrder = [numChannels]int{4, 5, 6, 7, 2, 0, 3, 1, 8, 9, 10, 11, 14, 12, 15, 13}

// Player is one playing sequence: its tempo state, its up-to-16 tracks,
// its up-to-16 hardware channels, and the SBNK/SWAR it resolves notes
// against (spec.md §3 "Player state").
type Player struct {
	SDAT       *sdat.SDAT
	bank       *sdat.Bank
	Archives   [4]*sdat.WaveArchive
	SeqInfo    sdat.SequenceInfo
	PlayerInfo sdat.PlayerInfo
	seqData    []byte

	Tempo        uint16
	TempoRatio   uint16 // Q8.8, default 256
	tempoCounter uint32
	MasterVolume uint8
	Priority     uint8
	SSEQVolume   int32

	Tracks        [numTracks]*track.Track
	trackReserved [numTracks]bool // named by AllocateTrack but not yet OpenTrack'd
	Variables     [numVariables]int16
	Channels      [numChannels]*channel.Channel
	channelOwner  [numChannels]int // track id, -1 if unowned

	sampleAccum float64

	Ended bool
}

// newBarePlayer builds a Player with every default-initialized field New
// sets up, but without touching tracks or wave archives — the shared
// core both New and clone build on.
func newBarePlayer(sd *sdat.SDAT, seqInfo sdat.SequenceInfo, bank *sdat.Bank, playerInfo sdat.PlayerInfo) *Player {
	p := &Player{
		SDAT:         sd,
		bank:         bank,
		SeqInfo:      seqInfo,
		PlayerInfo:   playerInfo,
		Tempo:        120,
		TempoRatio:   256,
		Priority:     64,
		MasterVolume: 127,
	}
	for i := range p.Variables {
		p.Variables[i] = -1
	}
	for i := range p.channelOwner {
		p.channelOwner[i] = -1
	}
	p.SSEQVolume = volumeByteToDeciBel(seqInfo.Volume)
	return p
}

// New builds a Player bound to one sequence, its bank, and the wave
// archives the bank's INFO entry references (spec.md §3 "Player state").
func New(sd *sdat.SDAT, seq *sdat.Sequence, seqInfo sdat.SequenceInfo, bank *sdat.Bank, bankInfo sdat.BankInfo, playerInfo sdat.PlayerInfo) *Player {
	p := newBarePlayer(sd, seqInfo, bank, playerInfo)

	for slot, waveIdx := range bankInfo.WaveArchiveIndices {
		if int(waveIdx) >= len(sd.Info.WaveArchives) {
			continue
		}
		fileID := sd.Info.WaveArchives[waveIdx].FileID
		archive, err := sd.WaveArchive(int(fileID))
		if err != nil {
			// A bank may legitimately reference fewer than four
			// archives; a resolution failure for an unused slot is
			// not fatal (spec.md §7 local recovery).
			continue
		}
		p.Archives[slot] = archive
	}

	p.startTracks(seq.Data)
	return p
}

// clone builds a fresh Player over the same sequence, bank, and archives
// as p, with every track restarted at its initial position and every
// channel empty — used by the timing variant's trailing-silence render
// pass, which needs to play the sequence through from the very
// beginning rather than continue driving a player whose tracks have
// already all ended (spec.md §4.9 "doNotes" fallback).
func (p *Player) clone() *Player {
	np := newBarePlayer(p.SDAT, p.SeqInfo, p.bank, p.PlayerInfo)
	np.Archives = p.Archives
	np.startTracks(p.seqData)
	return np
}

// volumeByteToDeciBel reuses the channel model's sustain/velocity curve
// to interpret the INFO sequence entry's 0..127 default volume, the
// same conversion spec.md §4.4 applies to note velocity.
func volumeByteToDeciBel(v uint8) int32 {
	return channel.VolumeToDeciBel(v)
}

// startTracks implements spec.md §4.6 "Track allocation": if the
// sequence's first opcode is AllocateTrack (0xFE), it names a 15-bit
// mask of additionally pre-allocated tracks; otherwise a single track
// starts at position 0.
//
// AllocateTrack only reserves slots 1..15 — it does not say where in
// the shared SSEQ byte stream each of them begins. Only track 0 (the
// track that is reading the AllocateTrack opcode itself) starts running
// immediately, right after the opcode, at pos 3. Every other reserved
// track sits idle until track 0 (or another running track) issues an
// OpenTrack opcode naming its real start offset; OpenTrack is the only
// thing that ever calls track.NewTrack for a non-zero track id.
func (p *Player) startTracks(data []byte) {
	p.seqData = data
	pos := 0
	mask := uint16(1) // track 0 always starts
	if len(data) >= 3 && data[0] == 0xFE {
		mask |= uint16(data[1]) | uint16(data[2])<<8
		pos = 3
	}
	p.Tracks[0] = track.NewTrack(0, data, pos)
	for id := 1; id < numTracks; id++ {
		if mask&(1<<uint(id)) != 0 {
			p.trackReserved[id] = true
		}
	}
}

// AllChannelsFinished reports whether every channel this player ever
// started has fully released, used by the timing variant's End/Loop
// success criterion.
func (p *Player) AllChannelsFinished() bool {
	for _, ch := range p.Channels {
		if ch != nil && ch.Active && !ch.Dead() {
			return false
		}
	}
	return true
}
