// Package wave decodes the three raw sample formats an SWAV can carry —
// 8-bit PCM, 16-bit PCM and IMA-ADPCM — into contiguous float32 vectors in
// [-1, 1], reproducing the DS hardware's documented rounding and clipping
// quirks (spec.md §4.3).
package wave

// Format identifies the raw sample encoding of an SWAV (spec.md §3).
type Format uint8

const (
	FormatPCM8 Format = iota
	FormatPCM16
	FormatIMAADPCM
)

// adpcmStepTable is the IMA-ADPCM step-index adjustment table, indexed by
// the low 3 bits of each nibble.
var adpcmStepTable = [8]int{-1, -1, -1, -1, 2, 4, 6, 8}

// adpcmStepSizeTable is the standard IMA-ADPCM step-size table.
var adpcmStepSizeTable = [89]int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

// DecodePCM8 interprets raw as signed 8-bit samples, out[i] = b[i]/127,
// with -128 clamped to -1 so every sample lies in [-1, 1].
func DecodePCM8(raw []byte) []float32 {
	out := make([]float32, len(raw))
	for i, b := range raw {
		v := float32(int8(b)) / 127
		if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

// DecodePCM16 interprets raw as little-endian signed 16-bit samples,
// out[i] = s[i]/32767, with -32768 clamped to -1 so every sample lies in
// [-1, 1].
func DecodePCM16(raw []byte) []float32 {
	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		v := float32(s) / 32767
		if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

// DecodeIMAADPCM decodes a nibble-coded IMA-ADPCM stream. The first four
// bytes hold the initial predictor (int16 LE) and step index (int16 LE,
// low byte only used); every byte after that carries two 4-bit nibbles,
// low nibble first. The -32768 predictor clamp is intentionally shifted to
// -32767 to match the hardware's decoder (spec.md §4.3, testable property 3).
func DecodeIMAADPCM(raw []byte) []float32 {
	if len(raw) < 4 {
		return nil
	}
	predictor := int(int16(uint16(raw[0]) | uint16(raw[1])<<8))
	stepIndex := int(int16(uint16(raw[2]) | uint16(raw[3])<<8))
	if stepIndex < 0 {
		stepIndex = 0
	} else if stepIndex > 88 {
		stepIndex = 88
	}

	body := raw[4:]
	out := make([]float32, 0, len(body)*2)

	decodeNibble := func(n int) {
		step := adpcmStepSizeTable[stepIndex]
		diff := step >> 3
		if n&1 != 0 {
			diff += step >> 2
		}
		if n&2 != 0 {
			diff += step >> 1
		}
		if n&4 != 0 {
			diff += step
		}
		if n&8 != 0 {
			predictor -= diff
			if predictor < -32767 {
				predictor = -32767
			}
		} else {
			predictor += diff
			if predictor > 32767 {
				predictor = 32767
			}
		}
		stepIndex += adpcmStepTable[n&7]
		if stepIndex < 0 {
			stepIndex = 0
		} else if stepIndex > 88 {
			stepIndex = 88
		}
		out = append(out, float32(predictor)/32767)
	}

	for _, b := range body {
		decodeNibble(int(b & 0x0f))
		decodeNibble(int(b >> 4))
	}
	return out
}

// Decode dispatches on format and returns the decoded float samples plus
// the loop offset translated into the decoded domain: x4 for PCM8, x2 for
// PCM16, x8 for ADPCM (with the ADPCM loop offset decremented once when
// non-zero, matching the four-byte ADPCM header consuming one "sample"
// slot ahead of the nibble stream), per spec.md §3.
func Decode(format Format, raw []byte, loopOffsetWords uint32) (samples []float32, decodedLoopOffset uint32) {
	switch format {
	case FormatPCM8:
		return DecodePCM8(raw), loopOffsetWords * 4
	case FormatPCM16:
		return DecodePCM16(raw), loopOffsetWords * 2
	case FormatIMAADPCM:
		off := loopOffsetWords * 8
		if off != 0 {
			off--
		}
		return DecodeIMAADPCM(raw), off
	default:
		return nil, 0
	}
}
