package ncsf

import (
	"encoding/binary"
	"fmt"
)

// ReadTags reads only the tag footer of an NCSF/2SF file, skipping the
// reserved block and compressed program section without decompressing
// them. This is the standalone surface a tag-only tool (spec.md §1's
// "2SF-tag-copy utility") needs without pulling in the full sequencer.
func ReadTags(data []byte) (*Tags, error) {
	pos, err := programEnd(data)
	if err != nil {
		return nil, err
	}
	if pos >= len(data) {
		return newTags(), nil
	}
	return parseTags(data[pos:])
}

// WriteTags rewrites only the tag footer of an NCSF/2SF file, leaving
// its header, reserved block, and compressed program bytes untouched —
// the complement to ReadTags for a tag-copy tool that never needs to
// touch the SDAT payload at all.
func WriteTags(data []byte, tags *Tags) ([]byte, error) {
	pos, err := programEnd(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, pos)
	copy(out, data[:pos])
	if tags != nil && tags.Len() > 0 {
		tagBytes, err := writeTags(tags)
		if err != nil {
			return nil, err
		}
		out = append(out, tagBytes...)
	}
	return out, nil
}

// programEnd locates the byte offset immediately after the compressed
// program block, i.e. where an optional tag footer would begin, without
// decompressing anything.
func programEnd(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("%w: file shorter than header (%d bytes)", ErrMalformedContainer, len(data))
	}
	if string(data[0:3]) != magic {
		return 0, fmt.Errorf("%w: bad magic %q", ErrMalformedContainer, data[0:3])
	}
	reservedSize := binary.LittleEndian.Uint32(data[4:8])
	programSize := binary.LittleEndian.Uint32(data[8:12])

	pos := headerSize + int(reservedSize) + int(programSize)
	if uint64(headerSize)+uint64(reservedSize)+uint64(programSize) > uint64(len(data)) {
		return 0, fmt.Errorf("%w: truncated reserved or program block", ErrMalformedContainer)
	}
	return pos, nil
}
