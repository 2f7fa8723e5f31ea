package sdat

import "github.com/ncsfplay/ncsf-player/pkg/wave"

// SWAV is a single decoded waveform (spec.md §3). Decoded is the raw
// samples decoded to float32 in [-1, 1]; DecodedLoopStart/DecodedLoopLen are
// translated into the decoded domain at parse time so every downstream
// consumer (the sample generator) works exclusively in sample units.
type SWAV struct {
	Format           wave.Format
	Loop             bool
	SampleRate       uint16
	Timer            uint16
	RawLoopOffset    uint32
	RawLoopLength    uint32
	Raw              []byte
	Decoded          []float32
	DecodedLoopStart uint32
	DecodedLoopLen   uint32
}

// WaveArchive is a sparse key -> SWAV mapping (spec.md §3). Missing keys
// simply have no entry; a note that resolves to a missing key is dropped,
// per the "lookup miss" recovery policy in spec.md §7.
type WaveArchive struct {
	Waves map[int]*SWAV
}

func parseSWAV(c *cursor) (*SWAV, error) {
	format, err := c.u8()
	if err != nil {
		return nil, err
	}
	loopFlag, err := c.u8()
	if err != nil {
		return nil, err
	}
	sampleRate, err := c.u16()
	if err != nil {
		return nil, err
	}
	timer, err := c.u16()
	if err != nil {
		return nil, err
	}
	loopOffset, err := c.u16()
	if err != nil {
		return nil, err
	}
	loopLength, err := c.u32()
	if err != nil {
		return nil, err
	}
	raw, err := c.bytes(len(c.data) - c.pos)
	if err != nil {
		return nil, err
	}

	sw := &SWAV{
		Format:        wave.Format(format),
		Loop:          loopFlag != 0,
		SampleRate:    sampleRate,
		Timer:         timer,
		RawLoopOffset: uint32(loopOffset),
		RawLoopLength: loopLength,
		Raw:           raw,
	}
	decoded, loopStart := wave.Decode(sw.Format, raw, sw.RawLoopOffset)
	sw.Decoded = decoded
	sw.DecodedLoopStart = loopStart
	sw.DecodedLoopLen = loopLength * unitsPerWord(sw.Format)
	return sw, nil
}

func unitsPerWord(f wave.Format) uint32 {
	switch f {
	case wave.FormatPCM8:
		return 4
	case wave.FormatPCM16:
		return 2
	case wave.FormatIMAADPCM:
		return 8
	default:
		return 1
	}
}

func parseWaveArchive(fileData []byte) (*WaveArchive, error) {
	c := newCursor(fileData)
	if _, err := parseStdHeader(c, "SWAR"); err != nil {
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
	dataC.skip(32) // reserved region preceding the wave count, mirrors SBNK/INFO padding
	count, err := dataC.u32()
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		off, err := dataC.u32()
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}

	archive := &WaveArchive{Waves: make(map[int]*SWAV)}
	for key, off := range offsets {
		if off == 0 {
			continue
		}
		wc := newCursor(fileData)
		wc.seek(int(off))
		sw, err := parseSWAV(wc)
		if err != nil {
			return nil, err
		}
		archive.Waves[key] = sw
	}
	return archive, nil
}
