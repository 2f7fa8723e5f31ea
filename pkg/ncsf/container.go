// Package ncsf implements the NCSF container codec (spec.md §4.1, §6,
// C1): the PSF-family wrapper around a zlib-compressed SDAT program
// section plus an optional "[TAG]" metadata footer, and the "_lib" chain
// overlay that builds one SDAT out of a file and its library ancestors.
package ncsf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Error kinds for container parsing (spec.md §7 kind 1: Malformed
// container).
var ErrMalformedContainer = errors.New("ncsf: malformed container")

const (
	// VersionNCSF is the version byte for Nintendo DS sound files.
	VersionNCSF byte = 0x25
	// Version2SF is the version byte for Nintendo DS 2SF files, the
	// predecessor tag this codec also accepts (spec.md §6).
	Version2SF byte = 0x24

	magic        = "PSF"
	headerSize   = 16 // magic(3) + version(1) + reservedSize(4) + programSize(4) + crc32(4)
	tagFooterTag = "[TAG]"
)

// Container is a parsed NCSF/2SF file: the raw reserved block, the
// decompressed SDAT program bytes, and any trailing tags.
type Container struct {
	Version  byte
	Reserved []byte
	Program  []byte // decompressed SDAT, starting at byte 0
	Tags     *Tags

	crc32 uint32 // read from the header; never verified on Parse and not used by Write
}

// SequenceNumber interprets Reserved as NCSF's single little-endian u32
// sequence number (spec.md §3 "NCSF wrapper"). Reserved must be at least
// 4 bytes; shorter reserved blocks (malformed or foreign files) return 0.
func (c *Container) SequenceNumber() uint32 {
	if len(c.Reserved) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(c.Reserved[:4])
}

// Parse decodes an NCSF/2SF container from raw file bytes.
func Parse(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header (%d bytes)", ErrMalformedContainer, len(data))
	}
	if string(data[0:3]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedContainer, data[0:3])
	}
	version := data[3]
	if version != VersionNCSF && version != Version2SF {
		return nil, fmt.Errorf("%w: unsupported version byte 0x%02x", ErrMalformedContainer, version)
	}

	reservedSize := binary.LittleEndian.Uint32(data[4:8])
	programSize := binary.LittleEndian.Uint32(data[8:12])
	crc := binary.LittleEndian.Uint32(data[12:16])

	pos := headerSize
	if uint64(pos)+uint64(reservedSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: truncated reserved block", ErrMalformedContainer)
	}
	reserved := data[pos : pos+int(reservedSize)]
	pos += int(reservedSize)

	if uint64(pos)+uint64(programSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: truncated program block", ErrMalformedContainer)
	}
	compressed := data[pos : pos+int(programSize)]
	pos += int(programSize)

	program, err := decompressProgram(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrMalformedContainer, err)
	}

	var tags *Tags
	if pos < len(data) {
		tags, err = parseTags(data[pos:])
		if err != nil {
			return nil, err
		}
	} else {
		tags = newTags()
	}

	return &Container{
		Version:  version,
		Reserved: append([]byte(nil), reserved...),
		Program:  program,
		Tags:     tags,
		crc32:    crc,
	}, nil
}

// decompressProgram inflates the zlib DEFLATE program block. The format
// note in spec.md §4.1 about learning the uncompressed size from a
// decompressed header prefix to avoid a second allocation is a stream
// library optimization this codec doesn't need: bytes.Buffer already
// grows geometrically, so a single io.Copy pass is both simpler and
// asymptotically no worse.
func decompressProgram(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write re-encodes a Container to NCSF/2SF bytes. Combined with Parse,
// this round-trips any well-formed container (spec.md §8 property 1),
// modulo tag order within the same key and the CRC32 field (never
// verified, so Write always emits zero rather than lying about a check
// this codec doesn't perform).
func Write(c *Container) ([]byte, error) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(c.Program); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(magic)
	out.WriteByte(c.Version)
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(c.Reserved)))
	out.Write(sizeBuf[:])
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(compressed.Len()))
	out.Write(sizeBuf[:])
	binary.LittleEndian.PutUint32(sizeBuf[:], 0) // CRC32 not computed: never verified on read
	out.Write(sizeBuf[:])
	out.Write(c.Reserved)
	out.Write(compressed.Bytes())

	if c.Tags != nil && c.Tags.Len() > 0 {
		tagBytes, err := writeTags(c.Tags)
		if err != nil {
			return nil, err
		}
		out.Write(tagBytes)
	}

	return out.Bytes(), nil
}
