package sdat

// SymbolTable holds the four name lists spec.md §3 cares about, out of the
// eight record slots the real SYMB layout reserves (sequence archives,
// groups and the secondary player table are read but discarded — nothing
// in this module ever looks a name up by those kinds).
type SymbolTable struct {
	SequenceNames    []string
	BankNames        []string
	WaveArchiveNames []string
	PlayerNames      []string
}

// symbRecordSlots indexes the four record-offset table entries this
// module reads out of the eight-slot SYMB record-offset table (spec.md
// §4.2: "8 record-offset table; only four are used").
const (
	symbSlotSequence    = 0
	symbSlotBank        = 2
	symbSlotWaveArchive = 3
	symbSlotPlayer      = 4
	symbSlotCount       = 8
)

func parseSymb(data []byte, block blockRef) (*SymbolTable, error) {
	if block.offset == 0 && block.size == 0 {
		return nil, nil
	}
	region := data[block.offset : block.offset+block.size]
	c := newCursor(region)
	if _, err := parseStdHeader(c, "SYMB"); err != nil {
		return nil, err
	}

	slots := make([]uint32, symbSlotCount)
	for i := range slots {
		off, err := c.u32()
		if err != nil {
			return nil, err
		}
		slots[i] = off
	}

	readRecord := func(recordOffset uint32) ([]string, error) {
		if recordOffset == 0 {
			return nil, nil
		}
		rc := newCursor(region)
		rc.seek(int(recordOffset))
		count, err := rc.u32()
		if err != nil {
			return nil, err
		}
		names := make([]string, count)
		for i := range names {
			strOff, err := rc.u32()
			if err != nil {
				return nil, err
			}
			names[i] = nulString(region, int(strOff))
		}
		return names, nil
	}

	sym := &SymbolTable{}
	var err error
	if sym.SequenceNames, err = readRecord(slots[symbSlotSequence]); err != nil {
		return nil, err
	}
	if sym.BankNames, err = readRecord(slots[symbSlotBank]); err != nil {
		return nil, err
	}
	if sym.WaveArchiveNames, err = readRecord(slots[symbSlotWaveArchive]); err != nil {
		return nil, err
	}
	if sym.PlayerNames, err = readRecord(slots[symbSlotPlayer]); err != nil {
		return nil, err
	}
	return sym, nil
}
