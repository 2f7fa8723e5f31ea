package player

import (
	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
	"github.com/ncsfplay/ncsf-player/pkg/track"
)

// Player implements track.Host. This is the single point where a track's
// opcode interpreter reaches back into shared player state.
var _ track.Host = (*Player)(nil)

func (p *Player) Bank() *sdat.Bank { return p.bank }

func (p *Player) LookupSWAV(archiveSlot, swavIndex uint16) (*sdat.SWAV, bool) {
	if int(archiveSlot) >= len(p.Archives) {
		return nil, false
	}
	archive := p.Archives[archiveSlot]
	if archive == nil {
		return nil, false
	}
	wav, ok := archive.Waves[int(swavIndex)]
	return wav, ok
}

func (p *Player) PlayerChannelMask() uint16 { return p.PlayerInfo.ChannelMask }

// AllocateChannelID runs the fixed-priority-order allocation rule
// (spec.md §4.6 "Channel allocation"): walk channelPriorityOrder, take
// the first free in-mask channel; failing that, among active in-mask
// channels evict the lowest-priority one (ties broken by lowest
// MixedVolume), but only if its priority does not exceed the requester's.
func (p *Player) AllocateChannelID(trackID int, mask uint16, priority uint8) (int, bool) {
	for _, id := range channelPriorityOrder {
		if mask&(1<<uint(id)) == 0 {
			continue
		}
		ch := p.Channels[id]
		if ch == nil || !ch.Active {
			return id, true
		}
	}

	best := -1
	for _, id := range channelPriorityOrder {
		if mask&(1<<uint(id)) == 0 {
			continue
		}
		ch := p.Channels[id]
		if ch == nil {
			continue
		}
		if best == -1 {
			best = id
			continue
		}
		bc := p.Channels[best]
		if ch.Priority < bc.Priority || (ch.Priority == bc.Priority && ch.MixedVolume() < bc.MixedVolume()) {
			best = id
		}
	}
	if best == -1 {
		return 0, false
	}
	if p.Channels[best].Priority >= priority {
		return 0, false
	}

	p.evict(best)
	return best, true
}

// evict kills the channel at id and removes it from whichever track
// previously owned it, undoing the bookkeeping SetChannel installed.
func (p *Player) evict(id int) {
	ch := p.Channels[id]
	if ch == nil {
		return
	}
	ch.Kill()
	owner := p.channelOwner[id]
	if owner >= 0 && p.Tracks[owner] != nil {
		delete(p.Tracks[owner].Channels, id)
	}
	p.Channels[id] = nil
	p.channelOwner[id] = -1
}

func (p *Player) SetChannel(trackID, id int, ch *channel.Channel) {
	p.Channels[id] = ch
	p.channelOwner[id] = trackID
}

func (p *Player) Variable(id uint8) int16 {
	if int(id) >= len(p.Variables) {
		return 0
	}
	return p.Variables[id]
}

func (p *Player) SetVariable(id uint8, v int16) {
	if int(id) >= len(p.Variables) {
		return
	}
	p.Variables[id] = v
}

func (p *Player) SetTempo(bpm uint16) { p.Tempo = bpm }

func (p *Player) SetMasterVolume(v uint8) { p.MasterVolume = v }

// OpenTrack starts a new cooperating track at an absolute offset into
// the same SSEQ, implementing the non-initial half of spec.md §4.6
// "Track allocation" (the OpenTrack opcode, as opposed to the
// AllocateTrack header byte startTracks already handles). This is the
// only place a reserved-but-idle track (named by AllocateTrack's mask)
// actually starts running, and the only place its start offset comes
// from — startTracks never guesses it.
func (p *Player) OpenTrack(trackID int, offset int) {
	if trackID < 0 || trackID >= numTracks {
		return
	}
	if p.Tracks[trackID] != nil {
		return
	}
	if p.seqData == nil {
		return
	}
	p.Tracks[trackID] = track.NewTrack(trackID, p.seqData, offset)
	p.trackReserved[trackID] = false
}

// OnBackwardGoto is a no-op for ordinary playback; the timing variant
// (TimingPlayer, in timing.go) embeds a Player and passes itself to the
// tracks as their track.Host, so its own OnBackwardGoto shadows this one
// and this method stays here only to satisfy track.Host for plain playback.
func (p *Player) OnBackwardGoto(trackID int) {}
