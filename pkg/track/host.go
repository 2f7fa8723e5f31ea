package track

import (
	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

// Host is everything a track needs from its owning player, expressed as
// an interface instead of a back-reference (spec.md §9 "Back-references":
// "pass the player by reference into every step; do not form an
// ownership cycle"). pkg/player implements this.
type Host interface {
	// Bank is the sequence's bound SBNK, used to resolve a track's
	// current program against a note's MIDI key.
	Bank() *sdat.Bank

	// LookupSWAV resolves a bank-relative wave-archive slot (0..3,
	// InstrumentDefinition.SwarIndex) and a SWAV index within it to a
	// decoded waveform.
	LookupSWAV(archiveSlot, swavIndex uint16) (*sdat.SWAV, bool)

	// PlayerChannelMask is the owning player's 16-bit allocatable
	// channel mask, intersected with each voice type's hardware mask.
	PlayerChannelMask() uint16

	// AllocateChannelID runs the fixed-priority-order allocation rule
	// (spec.md §4.6) and returns a free or evicted hardware channel id
	// for trackID to take ownership of.
	AllocateChannelID(trackID int, mask uint16, priority uint8) (id int, ok bool)

	// SetChannel installs a freshly constructed channel at id on behalf
	// of trackID, replacing whatever the allocator evicted there.
	SetChannel(trackID, id int, ch *channel.Channel)

	// Variable and SetVariable access the player's 32 shared signed-16
	// sequence variables.
	Variable(id uint8) int16
	SetVariable(id uint8, v int16)

	// SetTempo and SetMasterVolume push track-issued Tempo/MasterVolume
	// commands up to player state.
	SetTempo(bpm uint16)
	SetMasterVolume(v uint8)

	// OpenTrack starts a new cooperating track at an absolute byte
	// offset in the same SSEQ (spec.md §4.6 "Track allocation").
	OpenTrack(trackID int, offset int)

	// OnBackwardGoto is a hook for the timing variant (spec.md §4.9): it
	// fires whenever a Goto branches to an offset at or before the
	// current position, the loop-detection signal.
	OnBackwardGoto(trackID int)
}
