package player

import (
	"testing"

	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

// goto0 is the Goto opcode jumping to absolute offset 0, matching the
// raw encoding pkg/track's own tests use (opGoto plus a fixed 3-byte
// offset) without reaching into that package's unexported constant.
var goto0 = []byte{0x91, 0, 0, 0}

func TestMeasureReportsEndForATrackThatTerminates(t *testing.T) {
	p := newTestPlayer([]byte{0xFF}) // End immediately, no notes ever play
	tp := NewTimingPlayer(p, 0, 0)
	got := tp.Measure(8000)
	if got.Type != PlayerTimeEnd {
		t.Fatalf("Type = %v, want PlayerTimeEnd", got.Type)
	}
}

// newNotePlayingTestPlayer is newTestPlayer with a fast attack/sustain/
// instant-release instrument instead, so a played note produces audible
// (nonzero) output almost immediately and then dies in a single clock
// cycle once released — keeping the trailing-silence render pass in
// TestMeasureDoesNotReportEndAtZeroForASequenceThatPlaysNotes fast and
// its timing unambiguous.
func newNotePlayingTestPlayer(seqData []byte) *Player {
	bank := &sdat.Bank{Instruments: []sdat.InstrumentEntry{{
		Type: sdat.RecordPCM,
		Definitions: []sdat.InstrumentDefinition{{
			LowNote: 0, HighNote: 127, Type: sdat.RecordPCM,
			RootKey: 60, Attack: 127, Decay: 0, Sustain: 127, Release: 127, Pan: 64,
		}},
	}}}
	sd := &sdat.SDAT{Info: &sdat.InfoTables{}}
	seq := &sdat.Sequence{Data: seqData}
	p := New(sd, seq, sdat.SequenceInfo{Volume: 127}, bank, sdat.BankInfo{}, sdat.PlayerInfo{ChannelMask: 0xFFFF})
	// Bind a constant full-scale looping wave in archive slot 0, so the
	// instrument's note has a source to play.
	p.Archives[0] = &sdat.WaveArchive{Waves: map[int]*sdat.SWAV{0: {
		Decoded: []float32{1, 1, 1, 1}, Timer: 1024, Loop: true, DecodedLoopLen: 4,
	}}}
	return p
}

func TestMeasureDoesNotReportEndAtZeroForASequenceThatPlaysNotes(t *testing.T) {
	var data []byte
	data = append(data, 0xC4, 1)  // NoteWait on: the note's length becomes the track's own wait
	data = append(data, 60, 100)  // note 60, velocity 100
	data = appendVLV(data, 20)    // 20-tick length before auto release
	data = append(data, 0xFF)     // End, reached only once the wait above elapses

	p := newNotePlayingTestPlayer(data)
	tp := NewTimingPlayer(p, 25, 2)
	got := tp.Measure(8000)

	if got.Type != PlayerTimeEnd {
		t.Fatalf("Type = %v, want PlayerTimeEnd", got.Type)
	}
	// The note plays for 20 clock cycles (~0.1s) before it can even start
	// releasing; a verdict near zero would mean the fallback render pass
	// never actually drove the note, the bug this test guards against.
	if got.Seconds < 0.05 {
		t.Fatalf("Seconds = %v, want a real trailing-silence start well after the note's own length, not ~0", got.Seconds)
	}
}

func TestMeasureReportsLoopAfterRequiredLoopCount(t *testing.T) {
	var data []byte
	data = append(data, 0xC4, 1) // NoteWait on: the note's length becomes the track's wait
	data = append(data, 60, 100) // note 60, velocity 100
	data = appendVLV(data, 4)    // 4-tick wait
	data = append(data, goto0...)

	p := newTestPlayer(data)
	tp := NewTimingPlayer(p, 0, 2) // default maxSeconds, require 2 loops
	got := tp.measureNoRender()
	if got.Type != PlayerTimeLoop {
		t.Fatalf("Type = %v, want PlayerTimeLoop", got.Type)
	}
	if got.Seconds <= 0 {
		t.Fatalf("Seconds = %v, want > 0 after looping twice", got.Seconds)
	}
}

func TestOnBackwardGotoCountsPerTrack(t *testing.T) {
	var data []byte
	data = append(data, 60, 100)
	data = appendVLV(data, 4)
	data = append(data, goto0...)

	p := newTestPlayer(data)
	tp := NewTimingPlayer(p, 0, 5)
	tp.OnBackwardGoto(0)
	tp.OnBackwardGoto(0)
	if tp.loopCounts[0] != 2 {
		t.Fatalf("loopCounts[0] = %d, want 2", tp.loopCounts[0])
	}
	if tp.resolved[0] != nil {
		t.Fatal("expected no resolution yet, loop count is below the required 5")
	}
}

func TestMeasureHitsMaxSecondsWhenLoopNeverSatisfied(t *testing.T) {
	var data []byte
	data = append(data, 0xC4, 1) // NoteWait on, so each pass waits out the note
	data = append(data, 60, 100)
	data = appendVLV(data, 4)
	data = append(data, goto0...)

	p := newTestPlayer(data)
	tp := NewTimingPlayer(p, 0.01, 1_000_000) // unreachable loop target, tiny cap
	got := tp.measureNoRender()
	if got.Type != PlayerTimeMaxSeconds {
		t.Fatalf("Type = %v, want PlayerTimeMaxSeconds", got.Type)
	}
	if got.Seconds < 0.01 {
		t.Fatalf("Seconds = %v, want >= the 0.01 cap", got.Seconds)
	}
}
