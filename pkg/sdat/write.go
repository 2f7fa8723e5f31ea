package sdat

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles an SDAT byte stream from raw SBNK/SWAR/SSEQ payloads.
// It exists to support the container round-trip property (spec.md §8,
// property 2) and to let callers synthesize test fixtures without a real
// .sdat file — nothing in the playback path uses it.
type Builder struct {
	Sequences    []SequenceInfo
	Banks        []BankInfo
	WaveArchives []WaveArchiveInfo
	Players      []PlayerInfo

	// Files, keyed by file-ID (FAT index), holds the already-encoded
	// SBNK/SWAR/SSEQ byte payload for that slot.
	Files [][]byte
}

func putStdHeader(buf *bytes.Buffer, magic string, fileSize uint32, headerSize uint16, numBlocks uint16) {
	buf.WriteString(magic)
	var hdr [8]byte
	binary.LittleEndian.PutUint16(hdr[0:2], 0xFEFF)
	binary.LittleEndian.PutUint16(hdr[2:4], 0x0100)
	buf.Write(hdr[0:4])
	var rest [8]byte
	binary.LittleEndian.PutUint32(rest[0:4], fileSize)
	binary.LittleEndian.PutUint16(rest[4:6], headerSize)
	binary.LittleEndian.PutUint16(rest[6:8], numBlocks)
	buf.Write(rest[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// Write encodes the builder into a full SDAT byte stream: an empty SYMB
// (no names), an INFO block with the four supplied tables, a FAT, and a
// FILE region holding Files back to back in order.
func (bld *Builder) Write() []byte {
	// FILE region + FAT first, so we know offsets before building the
	// header block table.
	var fileRegion bytes.Buffer
	fat := make([]FATRecord, len(bld.Files))
	for i, f := range bld.Files {
		fat[i] = FATRecord{Offset: 0, Size: uint32(len(f))} // offset patched below
		fileRegion.Write(f)
		for fileRegion.Len()%4 != 0 {
			fileRegion.WriteByte(0)
		}
	}

	var symb bytes.Buffer
	putStdHeader(&symb, "SYMB", 0, 0x10, 1)
	for i := 0; i < symbSlotCount; i++ {
		putU32(&symb, 0)
	}

	var info bytes.Buffer
	putStdHeader(&info, "INFO", 0, 0x10, 1)
	infoSlotOffsets := make([]uint32, infoSlotCount)
	// Slot payloads are appended after the 8-slot table; compute them
	// first into a scratch buffer, then patch offsets.
	headerLen := 16 + 4*infoSlotCount
	var scratch bytes.Buffer

	writeSeqRecord := func() uint32 {
		off := uint32(headerLen + scratch.Len())
		putU32(&scratch, uint32(len(bld.Sequences)))
		entryOffs := make([]uint32, len(bld.Sequences))
		var entries bytes.Buffer
		base := off + 4 + uint32(len(bld.Sequences))*4
		for i, s := range bld.Sequences {
			entryOffs[i] = base + uint32(entries.Len())
			putU16(&entries, s.FileID)
			putU16(&entries, 0)
			putU16(&entries, s.BankIndex)
			entries.WriteByte(s.Volume)
			entries.WriteByte(s.ChannelPriority)
			entries.WriteByte(s.PlayerPriority)
			entries.WriteByte(s.PlayerIndex)
		}
		for _, e := range entryOffs {
			putU32(&scratch, e)
		}
		scratch.Write(entries.Bytes())
		return off
	}
	infoSlotOffsets[infoSlotSequence] = writeSeqRecord()

	writeBankRecord := func() uint32 {
		off := uint32(headerLen + scratch.Len())
		putU32(&scratch, uint32(len(bld.Banks)))
		entryOffs := make([]uint32, len(bld.Banks))
		var entries bytes.Buffer
		base := off + 4 + uint32(len(bld.Banks))*4
		for i, b := range bld.Banks {
			entryOffs[i] = base + uint32(entries.Len())
			putU16(&entries, b.FileID)
			putU16(&entries, 0)
			for _, w := range b.WaveArchiveIndices {
				putU16(&entries, w)
			}
		}
		for _, e := range entryOffs {
			putU32(&scratch, e)
		}
		scratch.Write(entries.Bytes())
		return off
	}
	infoSlotOffsets[infoSlotBank] = writeBankRecord()

	writeWaveArcRecord := func() uint32 {
		off := uint32(headerLen + scratch.Len())
		putU32(&scratch, uint32(len(bld.WaveArchives)))
		entryOffs := make([]uint32, len(bld.WaveArchives))
		var entries bytes.Buffer
		base := off + 4 + uint32(len(bld.WaveArchives))*4
		for i, w := range bld.WaveArchives {
			entryOffs[i] = base + uint32(entries.Len())
			putU16(&entries, w.FileID)
		}
		for _, e := range entryOffs {
			putU32(&scratch, e)
		}
		scratch.Write(entries.Bytes())
		return off
	}
	infoSlotOffsets[infoSlotWaveArchive] = writeWaveArcRecord()

	writePlayerRecord := func() uint32 {
		off := uint32(headerLen + scratch.Len())
		putU32(&scratch, uint32(len(bld.Players)))
		entryOffs := make([]uint32, len(bld.Players))
		var entries bytes.Buffer
		base := off + 4 + uint32(len(bld.Players))*4
		for i, p := range bld.Players {
			entryOffs[i] = base + uint32(entries.Len())
			putU16(&entries, p.FileID)
			putU16(&entries, p.ChannelMask)
		}
		for _, e := range entryOffs {
			putU32(&scratch, e)
		}
		scratch.Write(entries.Bytes())
		return off
	}
	infoSlotOffsets[infoSlotPlayer] = writePlayerRecord()

	for _, off := range infoSlotOffsets {
		putU32(&info, off)
	}
	info.Write(scratch.Bytes())

	var fatBuf bytes.Buffer
	putStdHeader(&fatBuf, "FAT ", 0, 0x10, 1)
	putU32(&fatBuf, uint32(len(fat)))

	var out bytes.Buffer
	putStdHeader(&out, "SDAT", 0, 0x40, 4)

	// Block table: SYMB, INFO, FAT, FILE. Offsets are absolute within the
	// final buffer; compute them now that every section's length is known.
	headerSize := out.Len() + 4*8
	symbOff := uint32(headerSize)
	infoOff := symbOff + uint32(symb.Len())
	fatOff := infoOff + uint32(info.Len())
	fileOff := fatOff + uint32(fatBuf.Len()) + uint32(len(fat))*16

	putU32(&out, symbOff)
	putU32(&out, uint32(symb.Len()))
	putU32(&out, infoOff)
	putU32(&out, uint32(info.Len()))
	putU32(&out, fatOff)
	putU32(&out, uint32(fatBuf.Len())+uint32(len(fat))*16)
	putU32(&out, fileOff)
	putU32(&out, uint32(fileRegion.Len()))

	out.Write(symb.Bytes())
	out.Write(info.Bytes())
	out.Write(fatBuf.Bytes())

	runningOff := fileOff
	for _, rec := range fat {
		putU32(&out, runningOff)
		putU32(&out, rec.Size)
		out.Write(make([]byte, 8))
		padded := rec.Size
		for padded%4 != 0 {
			padded++
		}
		runningOff += padded
	}
	out.Write(fileRegion.Bytes())

	result := out.Bytes()
	binary.LittleEndian.PutUint32(result[8:12], uint32(len(result)))
	return result
}
