package track

import (
	"github.com/ncsfplay/ncsf-player/internal/lcg"
	"github.com/ncsfplay/ncsf-player/pkg/channel"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
)

// argMode selects how the next opcode's value argument is read, set by a
// preceding 0xA-nibble prefix modifier (spec.md §4.5 "Prefix modifiers").
type argMode int

const (
	argPlain argMode = iota
	argRandom
	argFromVariable
)

// argKind is the argument's natural encoding width/sign when no prefix
// modifier is active.
type argKind int

const (
	kindVLV argKind = iota
	kindU8
	kindU16
	kindI16
)

func (t *Track) readU8() (byte, error) {
	v, next, err := readU8(t.base, t.pos)
	t.pos = next
	return v, err
}

func (t *Track) readU16() (uint16, error) {
	v, next, err := readU16(t.base, t.pos)
	t.pos = next
	return v, err
}

func (t *Track) readI16() (int16, error) {
	v, next, err := readI16(t.base, t.pos)
	t.pos = next
	return v, err
}

func (t *Track) readU24() (uint32, error) {
	v, next, err := readU24(t.base, t.pos)
	t.pos = next
	return v, err
}

func (t *Track) readVLV() (uint32, error) {
	v, next, err := readVLV(t.base, t.pos)
	t.pos = next
	return v, err
}

// readArg reads one value-typed argument honoring the active prefix
// mode: a literal of the opcode's natural kind, a variable lookup
// (FromVariable), or a uniform random draw over a (low,high) pair read
// in the opcode's place (Random), per spec.md §4.5.
func (t *Track) readArg(kind argKind, mode argMode, h Host) (int32, error) {
	switch mode {
	case argFromVariable:
		id, err := t.readU8()
		if err != nil {
			return 0, err
		}
		return int32(h.Variable(id)), nil
	case argRandom:
		lo, err := t.readU16()
		if err != nil {
			return 0, err
		}
		hi, err := t.readU16()
		if err != nil {
			return 0, err
		}
		rnd := int32(lcg.Next16())
		span := int32(hi) - int32(lo) + 1
		return int32(lo) + ((rnd * span) >> 16), nil
	default:
		switch kind {
		case kindVLV:
			v, err := t.readVLV()
			return int32(v), err
		case kindU16:
			v, err := t.readU16()
			return int32(v), err
		case kindI16:
			v, err := t.readI16()
			return int32(v), err
		default:
			v, err := t.readU8()
			return int32(v), err
		}
	}
}

// Step advances the track by one tempo tick (spec.md §4.5 "Steptick
// protocol"): decrement channel note-lengths, service NoteFinishWait,
// then dispatch opcodes until the track is waiting or blocked.
func (t *Track) Step(h Host) {
	if t.ended {
		return
	}
	t.tickChannels()
	if t.blocked() {
		return
	}
	if t.wait > 0 {
		t.wait--
	}
	for !t.ended && t.wait == 0 && !t.blocked() {
		t.runOne(h, argPlain, false)
	}
}

func (t *Track) tickChannels() {
	for id, ch := range t.Channels {
		if ch.Length > 0 {
			ch.Length--
			if ch.Length == 0 {
				ch.NoteOff()
			}
		}
		if ch.Dead() {
			delete(t.Channels, id)
			if t.tieChannel == ch {
				t.tieChannel = nil
			}
		}
	}
}

func (t *Track) allChannelsFinished() bool {
	for _, ch := range t.Channels {
		if !ch.Dead() {
			return false
		}
	}
	return true
}

func (t *Track) blocked() bool {
	if t.flags&FlagNoteFinishWait == 0 {
		return false
	}
	if t.allChannelsFinished() {
		t.flags &^= FlagNoteFinishWait
		return false
	}
	return true
}

// runOne reads and executes a single instruction: a prefix modifier
// recurses into the opcode it wraps; anything else is a note or command.
// mode carries a Random/FromVariable prefix into the wrapped opcode's
// value argument; conditional carries an If prefix, gating effects (not
// byte consumption) on the Compare flag.
func (t *Track) runOne(h Host, mode argMode, conditional bool) {
	if t.pos >= len(t.base) {
		t.ended = true
		return
	}
	op := t.base[t.pos]
	switch op {
	case opPrefixRandom:
		t.pos++
		t.runOne(h, argRandom, conditional)
		return
	case opPrefixFromVariable:
		t.pos++
		t.runOne(h, argFromVariable, conditional)
		return
	case opPrefixIf:
		t.pos++
		t.runOne(h, mode, true)
		return
	}
	t.pos++
	if op < 0x80 {
		t.execNote(h, op, mode, conditional)
		return
	}
	t.execCommand(h, op, mode, conditional)
}

func (t *Track) apply(conditional bool) bool {
	return !conditional || t.flags&FlagCompare != 0
}

// execNote handles a note event: (midi-key already consumed as op,
// velocity u8, length in the active argument mode) (spec.md §4.5 "Note
// handling").
func (t *Track) execNote(h Host, rawKey byte, mode argMode, conditional bool) {
	velocity, err := t.readU8()
	if err != nil {
		t.ended = true
		return
	}
	length, err := t.readArg(kindVLV, mode, h)
	if err != nil {
		t.ended = true
		return
	}
	if !t.apply(conditional) {
		return
	}

	if t.flags&FlagNoteWait != 0 {
		t.wait = length
	}
	if length == 0 {
		t.flags |= FlagNoteFinishWait
	}

	key := clamp8(int32(rawKey)+int32(t.Transpose), 0, 127)

	if t.flags&FlagTie != 0 && t.tieChannel != nil {
		t.tieChannel.MidiKey = key
		t.tieChannel.Velocity = velocity
		return
	}

	def, ok := h.Bank().Lookup(t.Program, key)
	if !ok {
		return // drum-table/key-split miss: drop the note (spec.md §7)
	}

	mask := allowedMaskFor(def.Type) & h.PlayerChannelMask()
	id, ok := h.AllocateChannelID(t.ID, mask, t.Priority)
	if !ok {
		return
	}

	adsr := t.effectiveADSR(channel.ADSR{Attack: def.Attack, Decay: def.Decay, Sustain: def.Sustain, Release: def.Release})
	ch := t.startChannel(h, id, def, key, velocity, adsr)
	if ch == nil {
		return
	}
	if length > 0 {
		ch.Length = length
	}
	h.SetChannel(t.ID, id, ch)
	t.Channels[id] = ch
	if t.flags&FlagTie != 0 {
		t.tieChannel = ch
	}
}

func allowedMaskFor(t sdat.InstrumentRecordType) uint16 {
	switch t {
	case sdat.RecordPSG:
		return 0x3F00
	case sdat.RecordNoise:
		return 0xC000
	default:
		return 0xFFFF
	}
}

func (t *Track) startChannel(h Host, id int, def sdat.InstrumentDefinition, key, velocity uint8, adsr channel.ADSR) *channel.Channel {
	switch def.Type {
	case sdat.RecordPSG:
		ch, err := channel.NewPSGChannel(id, uint8(def.SwavIndex), key, velocity, adsr, def.Pan)
		if err != nil {
			return nil
		}
		return ch
	case sdat.RecordNoise:
		ch, err := channel.NewNoiseChannel(id, key, velocity, adsr, def.Pan)
		if err != nil {
			return nil
		}
		return ch
	default:
		swav, _ := h.LookupSWAV(def.SwarIndex, def.SwavIndex)
		return channel.NewPCMChannel(id, swav, key, def.RootKey, velocity, adsr, def.Pan)
	}
}

// execCommand dispatches one command opcode. Commands that carry a
// single value argument read it through readArg so Random/FromVariable
// prefixes apply uniformly; structural opcodes (Goto/Call/Return/
// LoopStart/LoopEnd) read their own fixed encoding directly.
func (t *Track) execCommand(h Host, op byte, mode argMode, conditional bool) {
	apply := t.apply(conditional)

	switch op {
	case opRest:
		v, err := t.readArg(kindVLV, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.wait = v
		}
	case opPatch:
		v, err := t.readArg(kindVLV, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.Program = int(v)
		}

	case opOpenTrack:
		trackID, err := t.readU8()
		if err != nil {
			t.ended = true
			return
		}
		offset, err := t.readU24()
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			h.OpenTrack(int(trackID), int(offset))
		}
	case opGoto:
		offset, err := t.readU24()
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			if int(offset) <= t.pos {
				h.OnBackwardGoto(t.ID)
			}
			t.pos = int(offset)
		}
	case opCall:
		offset, err := t.readU24()
		if err != nil {
			t.ended = true
			return
		}
		if apply && t.callDepth < maxStackDepth {
			t.callStack[t.callDepth] = frame{pos: t.pos}
			t.callDepth++
			t.pos = int(offset)
		}
	case opReturn:
		if apply && t.callDepth > 0 {
			t.callDepth--
			t.pos = t.callStack[t.callDepth].pos
		}
	case opLoopStart:
		n, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply && t.callDepth < maxStackDepth {
			t.callStack[t.callDepth] = frame{pos: t.pos, loopCount: int(n), isLoop: true}
			t.callDepth++
		}
	case opLoopEnd:
		if apply && t.callDepth > 0 {
			top := &t.callStack[t.callDepth-1]
			if !top.isLoop {
				t.callDepth--
			} else if top.loopCount == 0 {
				t.pos = top.pos
			} else {
				top.loopCount--
				if top.loopCount == 0 {
					t.callDepth--
				} else {
					t.pos = top.pos
				}
			}
		}

	case opVarSet, opVarAdd, opVarSub, opVarMul, opVarDiv, opVarShift, opVarRandomize,
		opCmpEQ, opCmpNE, opCmpLT, opCmpLE, opCmpGT, opCmpGE:
		t.execVariableOp(h, op, mode, conditional)

	case opVolume:
		v, err := t.readArg(kindU8, mode, h)
		if err == nil && apply {
			t.Volume = uint8(v)
		} else if err != nil {
			t.ended = true
		}
	case opExpression:
		t.apply8(h, mode, apply, &t.Expression)
	case opMasterVolume:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			h.SetMasterVolume(uint8(v))
		}
	case opPriority:
		t.apply8(h, mode, apply, &t.Priority)
	case opNoteWait:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.setFlag(FlagNoteWait, v != 0)
		}
	case opTie:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.setFlag(FlagTie, v != 0)
			if v == 0 {
				t.tieChannel = nil
			}
		}
	case opPortamentoFlag:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.setFlag(FlagPortamento, v != 0)
		}
	case opPortamentoTime:
		t.apply8(h, mode, apply, &t.PortamentoTime)
	case opPortamentoKey:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.PortamentoKey = uint8(v)
			t.flags |= FlagPortamento
		}
	case opAttack:
		t.applyADSR(h, mode, apply, 0)
	case opDecay:
		t.applyADSR(h, mode, apply, 1)
	case opSustain:
		t.applyADSR(h, mode, apply, 2)
	case opRelease:
		t.applyADSR(h, mode, apply, 3)
	case opTranspose:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.Transpose = int8(v)
		}
	case opPitchBend:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.PitchBend = int8(v)
		}
	case opPitchBendRange:
		t.apply8(h, mode, apply, &t.BendRange)
	case opPan:
		t.apply8(h, mode, apply, &t.Pan)
	case opModDepth:
		t.apply8(h, mode, apply, &t.ModDepth)
	case opModSpeed:
		t.apply8(h, mode, apply, &t.ModSpeed)
	case opModType:
		v, err := t.readArg(kindU8, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.ModType = channel.LFOTarget(v)
		}
	case opModRange:
		t.apply8(h, mode, apply, &t.ModRange)

	case opModDelay:
		v, err := t.readArg(kindU16, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.ModDelay = uint16(v)
		}
	case opTempo:
		v, err := t.readArg(kindU16, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			h.SetTempo(uint16(v))
		}
	case opSweepPitch:
		v, err := t.readArg(kindI16, mode, h)
		if err != nil {
			t.ended = true
			return
		}
		if apply {
			t.SweepPitch = int16(v)
		}

	case opMute:
		// Unsupported per spec.md §9 open question (a): no-op.

	case opEnd:
		if apply {
			t.ended = true
		}

	case opAllocateTrack:
		// Only meaningful as the first byte of the stream (handled by
		// the player before any Track exists); mid-stream, no-op.

	default:
		// Unknown opcode sub-case: local recovery, no-op (spec.md §7).
	}
}

// apply8 reads one u8-kind argument and, if apply is true, stores it
// through dst; shared by the many single-byte 0xC/0xD commands that only
// differ in which field they write.
func (t *Track) apply8(h Host, mode argMode, apply bool, dst *uint8) {
	v, err := t.readArg(kindU8, mode, h)
	if err != nil {
		t.ended = true
		return
	}
	if apply {
		*dst = uint8(v)
	}
}

// applyADSR writes one of the four ADSR override bytes; field is
// 0=Attack, 1=Decay, 2=Sustain, 3=Release.
func (t *Track) applyADSR(h Host, mode argMode, apply bool, field int) {
	v, err := t.readArg(kindU8, mode, h)
	if err != nil {
		t.ended = true
		return
	}
	if !apply {
		return
	}
	t.hasADSROverride[field] = true
	switch field {
	case 0:
		t.adsrOverride.Attack = uint8(v)
	case 1:
		t.adsrOverride.Decay = uint8(v)
	case 2:
		t.adsrOverride.Sustain = uint8(v)
	case 3:
		t.adsrOverride.Release = uint8(v)
	}
}

func (t *Track) execVariableOp(h Host, op byte, mode argMode, conditional bool) {
	id, err := t.readU8()
	if err != nil {
		t.ended = true
		return
	}
	val, err := t.readArg(kindI16, mode, h)
	if err != nil {
		t.ended = true
		return
	}
	if !t.apply(conditional) {
		return
	}

	cur := int32(h.Variable(id))
	switch op {
	case opVarSet:
		h.SetVariable(id, wrap16(val))
	case opVarAdd:
		h.SetVariable(id, wrap16(cur+val))
	case opVarSub:
		h.SetVariable(id, wrap16(cur-val))
	case opVarMul:
		h.SetVariable(id, wrap16(cur*val))
	case opVarDiv:
		if val != 0 {
			h.SetVariable(id, wrap16(cur/val))
		}
	case opVarShift:
		if val >= 0 {
			h.SetVariable(id, wrap16(cur<<uint(val)))
		} else {
			h.SetVariable(id, wrap16(cur>>uint(-val)))
		}
	case opVarRandomize:
		rnd := int32(lcg.Next16())
		mag := val
		sign := int32(1)
		if mag < 0 {
			mag = -mag
			sign = -1
		}
		h.SetVariable(id, wrap16(sign*((rnd*(mag+1))>>16)))
	case opCmpEQ, opCmpNE, opCmpLT, opCmpLE, opCmpGT, opCmpGE:
		var result bool
		switch op {
		case opCmpEQ:
			result = cur == val
		case opCmpNE:
			result = cur != val
		case opCmpLT:
			result = cur < val
		case opCmpLE:
			result = cur <= val
		case opCmpGT:
			result = cur > val
		case opCmpGE:
			result = cur >= val
		}
		t.setFlag(FlagCompare, result)
	}
}

// UpdateChannels pushes this track's user-state (volume, pan, pitch
// bend, modulation, mute) into every channel it owns (spec.md §4.6
// "Call UpdateChannel", §4.5 "A mute bit gates the track's contribution
// to UpdateChannel (vol -> -0x8000) but opcodes still execute").
func (t *Track) UpdateChannels() {
	for _, ch := range t.Channels {
		if t.Mute {
			ch.UserDecay = -0x8000
		} else {
			ch.UserDecay = channel.VolumeToDeciBel(t.Volume) + channel.VolumeToDeciBel(t.Expression)
		}
		ch.UserPan = int32(t.Pan) - 0x40
		ch.UserPitch = int32(t.PitchBend) * int32(t.BendRange) * 64 / 128
		ch.SweepPitch = int32(t.SweepPitch)
		if t.flags&FlagPortamento != 0 {
			ch.SweepLength = int32(t.PortamentoTime)
		} else {
			ch.SweepLength = 0
		}

		ch.LFO.Target = t.ModType
		ch.LFO.Speed = t.ModSpeed
		ch.LFO.Depth = t.ModDepth
		ch.LFO.Range = t.ModRange
		ch.LFO.Delay = t.ModDelay
	}
}
