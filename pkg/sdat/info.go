package sdat

// SequenceInfo is one entry of the INFO sequence table (spec.md §3): a
// file-ID plus the bank it plays against, its default volume, and which
// player configuration owns it.
type SequenceInfo struct {
	FileID          uint16
	BankIndex       uint16
	Volume          uint8
	ChannelPriority uint8
	PlayerPriority  uint8
	PlayerIndex     uint8
}

// BankInfo is one entry of the INFO bank table: a file-ID plus the four
// wave-archive indices its PCM instruments may reference.
type BankInfo struct {
	FileID             uint16
	WaveArchiveIndices [4]uint16
}

// WaveArchiveInfo is one entry of the INFO wave-archive table.
type WaveArchiveInfo struct {
	FileID uint16
}

// PlayerInfo is one entry of the INFO player table: a file-ID plus the
// 16-bit channel mask the player is allowed to allocate from.
type PlayerInfo struct {
	FileID      uint16
	ChannelMask uint16
}

// InfoTables holds the four parallel INFO records spec.md §3 names.
type InfoTables struct {
	Sequences    []SequenceInfo
	Banks        []BankInfo
	WaveArchives []WaveArchiveInfo
	Players      []PlayerInfo
}

// infoRecordSlots mirrors symbRecordSlots: the INFO block reserves the
// same eight record-offset slots as SYMB, and this module only decodes
// the four spec.md needs.
const (
	infoSlotSequence    = 0
	infoSlotBank        = 2
	infoSlotWaveArchive = 3
	infoSlotPlayer      = 4
	infoSlotCount       = 8
)

func parseInfo(data []byte, block blockRef) (*InfoTables, error) {
	region := data[block.offset : block.offset+block.size]
	c := newCursor(region)
	if _, err := parseStdHeader(c, "INFO"); err != nil {
		return nil, err
	}

	slots := make([]uint32, infoSlotCount)
	for i := range slots {
		off, err := c.u32()
		if err != nil {
			return nil, err
		}
		slots[i] = off
	}

	entryOffsets := func(recordOffset uint32) ([]uint32, error) {
		if recordOffset == 0 {
			return nil, nil
		}
		rc := newCursor(region)
		rc.seek(int(recordOffset))
		count, err := rc.u32()
		if err != nil {
			return nil, err
		}
		offs := make([]uint32, count)
		for i := range offs {
			o, err := rc.u32()
			if err != nil {
				return nil, err
			}
			offs[i] = o
		}
		return offs, nil
	}

	info := &InfoTables{}

	seqOffs, err := entryOffsets(slots[infoSlotSequence])
	if err != nil {
		return nil, err
	}
	info.Sequences = make([]SequenceInfo, 0, len(seqOffs))
	for _, off := range seqOffs {
		if off == 0 {
			info.Sequences = append(info.Sequences, SequenceInfo{})
			continue
		}
		ec := newCursor(region)
		ec.seek(int(off))
		fileID, err := ec.u16()
		if err != nil {
			return nil, err
		}
		ec.skip(2) // reserved
		bankIndex, err := ec.u16()
		if err != nil {
			return nil, err
		}
		volume, err := ec.u8()
		if err != nil {
			return nil, err
		}
		cpr, err := ec.u8()
		if err != nil {
			return nil, err
		}
		ppr, err := ec.u8()
		if err != nil {
			return nil, err
		}
		playerIdx, err := ec.u8()
		if err != nil {
			return nil, err
		}
		info.Sequences = append(info.Sequences, SequenceInfo{
			FileID: fileID, BankIndex: bankIndex, Volume: volume,
			ChannelPriority: cpr, PlayerPriority: ppr, PlayerIndex: playerIdx,
		})
	}

	bankOffs, err := entryOffsets(slots[infoSlotBank])
	if err != nil {
		return nil, err
	}
	info.Banks = make([]BankInfo, 0, len(bankOffs))
	for _, off := range bankOffs {
		if off == 0 {
			info.Banks = append(info.Banks, BankInfo{})
			continue
		}
		ec := newCursor(region)
		ec.seek(int(off))
		fileID, err := ec.u16()
		if err != nil {
			return nil, err
		}
		ec.skip(2)
		var waves [4]uint16
		for i := range waves {
			w, err := ec.u16()
			if err != nil {
				return nil, err
			}
			waves[i] = w
		}
		info.Banks = append(info.Banks, BankInfo{FileID: fileID, WaveArchiveIndices: waves})
	}

	waveOffs, err := entryOffsets(slots[infoSlotWaveArchive])
	if err != nil {
		return nil, err
	}
	info.WaveArchives = make([]WaveArchiveInfo, 0, len(waveOffs))
	for _, off := range waveOffs {
		if off == 0 {
			info.WaveArchives = append(info.WaveArchives, WaveArchiveInfo{})
			continue
		}
		ec := newCursor(region)
		ec.seek(int(off))
		fileID, err := ec.u16()
		if err != nil {
			return nil, err
		}
		info.WaveArchives = append(info.WaveArchives, WaveArchiveInfo{FileID: fileID})
	}

	playerOffs, err := entryOffsets(slots[infoSlotPlayer])
	if err != nil {
		return nil, err
	}
	info.Players = make([]PlayerInfo, 0, len(playerOffs))
	for _, off := range playerOffs {
		if off == 0 {
			info.Players = append(info.Players, PlayerInfo{})
			continue
		}
		ec := newCursor(region)
		ec.seek(int(off))
		fileID, err := ec.u16()
		if err != nil {
			return nil, err
		}
		mask, err := ec.u16()
		if err != nil {
			return nil, err
		}
		info.Players = append(info.Players, PlayerInfo{FileID: fileID, ChannelMask: mask})
	}

	return info, nil
}
