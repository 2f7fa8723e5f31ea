package sdat

import "fmt"

// InstrumentRecordType is the SBNK entry kind (spec.md §3).
type InstrumentRecordType uint8

const (
	RecordEmpty     InstrumentRecordType = 0
	RecordPCM       InstrumentRecordType = 1
	RecordPSG       InstrumentRecordType = 2
	RecordNoise     InstrumentRecordType = 3
	RecordDummy     InstrumentRecordType = 5
	RecordDrumTable InstrumentRecordType = 16
	RecordKeySplit  InstrumentRecordType = 17
)

// InstrumentDefinition is one (low, high, type, swav, swar, root, ADSR,
// pan) tuple, the unit every note lookup eventually resolves to
// (spec.md §3, §4.5 "Channel lookup").
type InstrumentDefinition struct {
	LowNote   uint8
	HighNote  uint8
	Type      InstrumentRecordType
	SwavIndex uint16
	SwarIndex uint16
	RootKey   uint8
	Attack    uint8
	Decay     uint8
	Sustain   uint8
	Release   uint8
	Pan       uint8
}

// InstrumentEntry is one SBNK slot: a record type plus 1..N definitions.
type InstrumentEntry struct {
	Type        InstrumentRecordType
	Definitions []InstrumentDefinition
}

// Bank is a parsed SBNK: an ordered list of instrument entries addressed
// by program number.
type Bank struct {
	Instruments []InstrumentEntry
}

func readDefinitionFields(c *cursor) (InstrumentDefinition, error) {
	var d InstrumentDefinition
	swav, err := c.u16()
	if err != nil {
		return d, err
	}
	swar, err := c.u16()
	if err != nil {
		return d, err
	}
	root, err := c.u8()
	if err != nil {
		return d, err
	}
	c.skip(1) // fixed-point vibrato/scale byte, unused by this player
	attack, err := c.u8()
	if err != nil {
		return d, err
	}
	decay, err := c.u8()
	if err != nil {
		return d, err
	}
	sustain, err := c.u8()
	if err != nil {
		return d, err
	}
	release, err := c.u8()
	if err != nil {
		return d, err
	}
	pan, err := c.u8()
	if err != nil {
		return d, err
	}
	d.SwavIndex, d.SwarIndex, d.RootKey = swav, swar, root
	d.Attack, d.Decay, d.Sustain, d.Release, d.Pan = attack, decay, sustain, release, pan
	return d, nil
}

func parseBank(fileData []byte) (*Bank, error) {
	c := newCursor(fileData)
	if _, err := parseStdHeader(c, "SBNK"); err != nil {
		return nil, err
	}
	block, err := readBlockRef(c)
	if err != nil {
		return nil, err
	}
	if err := block.validate(len(fileData)); err != nil {
		return nil, err
	}

	dataC := newCursor(fileData)
	dataC.seek(int(block.offset))
	if _, err := parseStdHeader(dataC, "DATA"); err != nil {
		return nil, err
	}
	count, err := dataC.u32()
	if err != nil {
		return nil, err
	}

	type header struct {
		recordType InstrumentRecordType
		offset     uint32
	}
	headers := make([]header, count)
	for i := range headers {
		rt, err := dataC.u16()
		if err != nil {
			return nil, err
		}
		off, err := dataC.u32()
		if err != nil {
			return nil, err
		}
		dataC.skip(2) // reserved
		headers[i] = header{recordType: InstrumentRecordType(rt), offset: off}
	}

	bank := &Bank{Instruments: make([]InstrumentEntry, count)}
	for i, h := range headers {
		entry := InstrumentEntry{Type: h.recordType}
		switch h.recordType {
		case RecordEmpty:
			// no definitions
		case RecordPCM, RecordPSG, RecordNoise, RecordDummy:
			ec := newCursor(fileData)
			ec.seek(int(h.offset))
			d, err := readDefinitionFields(ec)
			if err != nil {
				return nil, err
			}
			d.Type = h.recordType
			d.LowNote, d.HighNote = 0, 127
			entry.Definitions = []InstrumentDefinition{d}
		case RecordDrumTable:
			ec := newCursor(fileData)
			ec.seek(int(h.offset))
			low, err := ec.u8()
			if err != nil {
				return nil, err
			}
			high, err := ec.u8()
			if err != nil {
				return nil, err
			}
			if high < low {
				return nil, fmt.Errorf("%w: drum table high %d < low %d", ErrMalformedSDAT, high, low)
			}
			for note := int(low); note <= int(high); note++ {
				d, err := readDefinitionFields(ec)
				if err != nil {
					return nil, err
				}
				d.Type = RecordPCM
				d.LowNote, d.HighNote = uint8(note), uint8(note)
				entry.Definitions = append(entry.Definitions, d)
			}
		case RecordKeySplit:
			ec := newCursor(fileData)
			ec.seek(int(h.offset))
			var bounds []uint8
			for i := 0; i < 8; i++ {
				b, err := ec.u8()
				if err != nil {
					return nil, err
				}
				if b == 0 {
					break
				}
				bounds = append(bounds, b)
			}
			prevLow := uint8(0)
			for _, high := range bounds {
				d, err := readDefinitionFields(ec)
				if err != nil {
					return nil, err
				}
				d.Type = RecordPCM
				d.LowNote, d.HighNote = prevLow, high
				entry.Definitions = append(entry.Definitions, d)
				prevLow = high + 1
			}
		default:
			// Unknown record type: treated as empty, matching the
			// interpreter's local-recovery policy (spec.md §7).
		}
		bank.Instruments[i] = entry
	}
	return bank, nil
}

// Lookup resolves a program number and MIDI key to a definition following
// spec.md §4.5's "Channel lookup" rule.
func (b *Bank) Lookup(program int, midiKey uint8) (InstrumentDefinition, bool) {
	if program < 0 || program >= len(b.Instruments) {
		return InstrumentDefinition{}, false
	}
	entry := b.Instruments[program]
	switch entry.Type {
	case RecordPCM, RecordPSG, RecordNoise, RecordDummy:
		if len(entry.Definitions) == 0 {
			return InstrumentDefinition{}, false
		}
		return entry.Definitions[0], true
	case RecordDrumTable:
		if len(entry.Definitions) == 0 {
			return InstrumentDefinition{}, false
		}
		low := entry.Definitions[0].LowNote
		idx := int(midiKey) - int(low)
		if idx < 0 || idx >= len(entry.Definitions) {
			return InstrumentDefinition{}, false
		}
		return entry.Definitions[idx], true
	case RecordKeySplit:
		for _, d := range entry.Definitions {
			if midiKey <= d.HighNote {
				return d, true
			}
		}
		return InstrumentDefinition{}, false
	default:
		return InstrumentDefinition{}, false
	}
}
