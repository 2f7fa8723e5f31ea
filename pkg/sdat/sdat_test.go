package sdat

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ncsfplay/ncsf-player/pkg/wave"
)

// The fixtures below hand-assemble minimal SBNK/SWAR/SSEQ payloads byte by
// byte, the same way the real files are laid out (spec.md §3, §4.2). There
// is no sample .sdat available to parse against, so these fixtures stand
// in for one.

func buildSSEQFixture(body []byte) []byte {
	var out bytes.Buffer
	putStdHeader(&out, "SSEQ", 0, 0x18, 1)
	blockOffPos := out.Len()
	putU32(&out, 0)
	putU32(&out, 0)
	dataStart := out.Len()
	putStdHeader(&out, "DATA", 0, 0x10, 1)
	putU32(&out, uint32(len(body)))
	out.Write(body)

	result := out.Bytes()
	binary.LittleEndian.PutUint32(result[8:12], uint32(len(result)))
	binary.LittleEndian.PutUint32(result[blockOffPos:blockOffPos+4], uint32(dataStart))
	binary.LittleEndian.PutUint32(result[blockOffPos+4:blockOffPos+8], uint32(len(result)-dataStart))
	return result
}

func buildSBNKFixture() []byte {
	var out bytes.Buffer
	putStdHeader(&out, "SBNK", 0, 0x18, 1)
	blockOffPos := out.Len()
	putU32(&out, 0)
	putU32(&out, 0)
	dataStart := out.Len()
	putStdHeader(&out, "DATA", 0, 0x10, 1)
	putU32(&out, 1) // one instrument entry
	putU16(&out, uint16(RecordPCM))
	entryOffPos := out.Len()
	putU32(&out, 0)
	putU16(&out, 0) // reserved
	defPos := out.Len()
	putU16(&out, 0)  // swav index
	putU16(&out, 0)  // swar index
	out.WriteByte(60) // root key
	out.WriteByte(0)  // reserved
	out.WriteByte(0)  // attack
	out.WriteByte(0)  // decay
	out.WriteByte(127) // sustain
	out.WriteByte(0)  // release
	out.WriteByte(64) // pan

	result := out.Bytes()
	binary.LittleEndian.PutUint32(result[8:12], uint32(len(result)))
	binary.LittleEndian.PutUint32(result[blockOffPos:blockOffPos+4], uint32(dataStart))
	binary.LittleEndian.PutUint32(result[blockOffPos+4:blockOffPos+8], uint32(len(result)-dataStart))
	binary.LittleEndian.PutUint32(result[entryOffPos:entryOffPos+4], uint32(defPos))
	return result
}

var swavRawPCM8 = []byte{10, 20, 30, 40, 50, 60, 70, 80}

func buildSWARFixture() []byte {
	var out bytes.Buffer
	putStdHeader(&out, "SWAR", 0, 0x18, 1)
	blockOffPos := out.Len()
	putU32(&out, 0)
	putU32(&out, 0)
	dataStart := out.Len()
	putStdHeader(&out, "DATA", 0, 0x10, 1)
	out.Write(make([]byte, 32)) // reserved padding ahead of the wave count
	putU32(&out, 1)             // one wave, at key 0
	waveOffPos := out.Len()
	putU32(&out, 0)
	wavePos := out.Len()
	out.WriteByte(byte(wave.FormatPCM8))
	out.WriteByte(1) // loop
	putU16(&out, 16000)
	putU16(&out, 100)
	putU16(&out, 0) // loop offset
	putU32(&out, 2) // loop length, in pcm8 words
	out.Write(swavRawPCM8)

	result := out.Bytes()
	binary.LittleEndian.PutUint32(result[8:12], uint32(len(result)))
	binary.LittleEndian.PutUint32(result[blockOffPos:blockOffPos+4], uint32(dataStart))
	binary.LittleEndian.PutUint32(result[blockOffPos+4:blockOffPos+8], uint32(len(result)-dataStart))
	binary.LittleEndian.PutUint32(result[waveOffPos:waveOffPos+4], uint32(wavePos))
	return result
}

func buildFixtureSDAT(t *testing.T, seqBody []byte) []byte {
	t.Helper()
	bld := &Builder{
		Sequences: []SequenceInfo{{FileID: 0, BankIndex: 0, Volume: 127}},
		Banks:     []BankInfo{{FileID: 1, WaveArchiveIndices: [4]uint16{0, 0xFFFF, 0xFFFF, 0xFFFF}}},
		WaveArchives: []WaveArchiveInfo{{FileID: 2}},
		Players:      []PlayerInfo{{FileID: 0, ChannelMask: 0xFFFF}},
		Files: [][]byte{
			buildSSEQFixture(seqBody),
			buildSBNKFixture(),
			buildSWARFixture(),
		},
	}
	return bld.Write()
}

func TestParseSyntheticSDAT(t *testing.T) {
	seqBody := []byte{0x80, 0x01, 0x81}
	raw := buildFixtureSDAT(t, seqBody)

	sd, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sd.Info.Sequences) != 1 {
		t.Fatalf("expected 1 sequence, got %d", len(sd.Info.Sequences))
	}

	seq, info, err := sd.ResolveSequence(0)
	if err != nil {
		t.Fatalf("ResolveSequence: %v", err)
	}
	if !bytes.Equal(seq.Data, seqBody) {
		t.Fatalf("sequence data = %v, want %v", seq.Data, seqBody)
	}
	if info.BankIndex != 0 || info.Volume != 127 {
		t.Fatalf("unexpected sequence info: %+v", info)
	}

	bank, err := sd.Bank(1)
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	def, ok := bank.Lookup(0, 60)
	if !ok {
		t.Fatal("Lookup(0, 60) missed")
	}
	if def.SwavIndex != 0 || def.SwarIndex != 0 || def.RootKey != 60 || def.Pan != 64 {
		t.Fatalf("unexpected instrument definition: %+v", def)
	}

	archive, err := sd.WaveArchive(2)
	if err != nil {
		t.Fatalf("WaveArchive: %v", err)
	}
	wv, ok := archive.Waves[0]
	if !ok {
		t.Fatal("wave archive missing key 0")
	}
	if len(wv.Decoded) != len(swavRawPCM8) {
		t.Fatalf("decoded sample count = %d, want %d", len(wv.Decoded), len(swavRawPCM8))
	}
	for i, raw := range swavRawPCM8 {
		want := float32(int8(raw)) / 127
		if wv.Decoded[i] != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, wv.Decoded[i], want)
		}
	}
}

func TestParseRejectsTruncatedFile(t *testing.T) {
	raw := buildFixtureSDAT(t, []byte{0x80})
	_, err := Parse(raw[:len(raw)-10])
	if err == nil {
		t.Fatal("expected error parsing truncated SDAT, got nil")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	raw := buildFixtureSDAT(t, []byte{0x80})
	raw[0] = 'X'
	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected error parsing SDAT with corrupted magic, got nil")
	}
}

func TestBankLookupMissingProgram(t *testing.T) {
	raw := buildFixtureSDAT(t, []byte{0x80})
	sd, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bank, err := sd.Bank(1)
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	if _, ok := bank.Lookup(5, 60); ok {
		t.Fatal("Lookup(5, 60) should miss: program 5 does not exist in a 1-entry bank")
	}
}
