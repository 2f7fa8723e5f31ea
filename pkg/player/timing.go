package player

import (
	"github.com/ncsfplay/ncsf-player/pkg/sample"
	"github.com/ncsfplay/ncsf-player/pkg/track"
)

// MarkerKind distinguishes why a timeline marker was recorded.
type MarkerKind int

const (
	MarkerNone MarkerKind = iota
	MarkerLoop
	MarkerEnd
)

// TimeMarker is one (seconds, kind) timeline entry a track's interpreter
// produces when it loops or ends (spec.md §4.9).
type TimeMarker struct {
	Seconds float64
	Kind    MarkerKind
}

// PlayerTimeType classifies how Measure arrived at its verdict.
type PlayerTimeType int

const (
	PlayerTimeUnknown PlayerTimeType = iota
	PlayerTimeEnd
	PlayerTimeLoop
	PlayerTimeMaxSeconds
)

// PlayerTime is the final length verdict (spec.md §4.9 "Success
// criterion").
type PlayerTime struct {
	Seconds float64
	Type    PlayerTimeType
}

const (
	defaultMaxSeconds      = 6000
	defaultRequiredLoops   = 2
	trailingSilenceSeconds = 20
)

// TimingPlayer measures a sequence's length without rendering audio, by
// driving the same tracks a Player would but recording when each one
// loops or ends instead of pushing state into channels. It wraps a
// *Player behind its own track.Host rather than growing Player with
// timing-only state, since ordinary playback and length measurement are
// different roles over the same track set (spec.md §9 "Back-references").
type TimingPlayer struct {
	*Player

	elapsed       float64
	maxSeconds    float64
	loopsRequired int

	loopCounts [numTracks]int
	resolved   [numTracks]*TimeMarker
	used       [numTracks]bool
}

// NewTimingPlayer wraps p for measurement. maxSeconds<=0 and
// loopsRequired<=0 fall back to spec.md §4.9's defaults (6000, 2).
func NewTimingPlayer(p *Player, maxSeconds float64, loopsRequired int) *TimingPlayer {
	if maxSeconds <= 0 {
		maxSeconds = defaultMaxSeconds
	}
	if loopsRequired <= 0 {
		loopsRequired = defaultRequiredLoops
	}
	tp := &TimingPlayer{Player: p, maxSeconds: maxSeconds, loopsRequired: loopsRequired}
	for id, t := range p.Tracks {
		tp.used[id] = t != nil
	}
	return tp
}

var _ track.Host = (*TimingPlayer)(nil)

// OnBackwardGoto shadows Player's no-op: every backward Goto counts as
// one loop iteration for that track. Once a track reaches the required
// loop count its resolution marker is recorded, same as an End opcode
// resolves it in tick().
func (tp *TimingPlayer) OnBackwardGoto(trackID int) {
	tp.loopCounts[trackID]++
	if tp.loopCounts[trackID] >= tp.loopsRequired {
		tp.resolve(trackID, TimeMarker{Seconds: tp.elapsed, Kind: MarkerLoop})
	}
}

func (tp *TimingPlayer) resolve(trackID int, m TimeMarker) {
	if tp.resolved[trackID] == nil {
		tp.resolved[trackID] = &m
	}
}

// tick runs one clock cycle's worth of track stepping, mirroring
// SequenceMain's tempo accounting (scheduler.go) but passing tp itself
// as the Host so OnBackwardGoto lands here instead of on the plain
// Player, and skipping the channel-update/Main passes entirely since
// length measurement never renders audio.
func (tp *TimingPlayer) tick() {
	tp.tempoCounter += uint32(tp.Tempo) * uint32(tp.TempoRatio) / 256
	for tp.tempoCounter >= TimerRate {
		tp.tempoCounter -= TimerRate
		for _, t := range tp.Tracks {
			if t != nil && !t.Ended() {
				t.Step(tp)
			}
		}
	}
}

func (tp *TimingPlayer) allResolved() bool {
	for id := range tp.used {
		if tp.used[id] && tp.resolved[id] == nil {
			return false
		}
	}
	return true
}

// verdict reduces the per-track resolution markers to the single
// success criterion of spec.md §4.9: every used track must have either
// looped enough times or ended; the reported time is the later of the
// two, carrying whichever marker kind produced it.
func (tp *TimingPlayer) verdict() PlayerTime {
	if !tp.allResolved() {
		return PlayerTime{Seconds: tp.elapsed, Type: PlayerTimeMaxSeconds}
	}
	best := PlayerTime{Type: PlayerTimeUnknown}
	for id := range tp.used {
		if !tp.used[id] {
			continue
		}
		m := tp.resolved[id]
		if m.Seconds < best.Seconds {
			continue
		}
		best.Seconds = m.Seconds
		switch m.Kind {
		case MarkerLoop:
			best.Type = PlayerTimeLoop
		case MarkerEnd:
			best.Type = PlayerTimeEnd
		}
	}
	return best
}

// measureNoRender runs tick() until every used track resolves or
// maxSeconds is reached (spec.md §4.9 "Running conditions").
func (tp *TimingPlayer) measureNoRender() PlayerTime {
	for tp.elapsed < tp.maxSeconds {
		tp.tick()
		tp.elapsed += SecondsPerClockCycle
		for id, t := range tp.Tracks {
			if t != nil && tp.used[id] && t.Ended() {
				tp.resolve(id, TimeMarker{Seconds: tp.elapsed, Kind: MarkerEnd})
			}
		}
		if tp.allResolved() {
			break
		}
	}
	return tp.verdict()
}

// measureTrailingSilence is the doNotes=true fallback (spec.md §4.9):
// it renders through a freshly cloned Player/a Generator exactly as
// pkg/stream does, but never emits the samples, and reports the moment
// 20 consecutive seconds of exact-zero stereo output begin as the true
// end. It must drive a fresh player rather than tp.Player: by the time
// Measure calls this, measureNoRender has already stepped tp.Player's
// tracks to completion (Ended()) without ever ticking a channel's
// envelope, so replaying on the same instance would see dead tracks and
// silent, never-triggered channels from sample zero.
func (tp *TimingPlayer) measureTrailingSilence(sampleRate int) PlayerTime {
	render := tp.Player.clone()
	gen := sample.NewGenerator(sampleRate, sample.Linear)
	var silenceRun float64
	var silenceStart float64
	inRun := false
	elapsed := 0.0
	step := 1.0 / float64(sampleRate)

	for elapsed < tp.maxSeconds {
		render.Advance(1, sampleRate)
		l, r := gen.Generate(render.Channels[:])
		if l == 0 && r == 0 {
			if !inRun {
				inRun = true
				silenceStart = elapsed
			}
			silenceRun += step
			if silenceRun >= trailingSilenceSeconds {
				return PlayerTime{Seconds: silenceStart, Type: PlayerTimeEnd}
			}
		} else {
			inRun = false
			silenceRun = 0
		}
		elapsed += step
	}
	return PlayerTime{Seconds: tp.maxSeconds, Type: PlayerTimeMaxSeconds}
}

// Measure implements spec.md §4.9 end to end: a track-only first pass,
// refined by the doNotes render pass whenever the first pass's verdict
// is an End (an End time derived purely from opcode positions can't
// tell a deliberately long release tail from true silence, so every End
// verdict gets checked against actual rendered output).
func (tp *TimingPlayer) Measure(fallbackSampleRate int) PlayerTime {
	first := tp.measureNoRender()
	if first.Type != PlayerTimeEnd {
		return first
	}
	if fallbackSampleRate <= 0 {
		fallbackSampleRate = 32000
	}
	return tp.measureTrailingSilence(fallbackSampleRate)
}
