package sdat

import "fmt"

// stdHeader is the common header shared by the SDAT container itself and
// each of its nested files (SBNK, SWAR, SSEQ) — spec.md §4.2: "Each of
// these files begins with the same standard header".
type stdHeader struct {
	magic      [4]byte
	byteOrder  uint16
	version    uint16
	fileSize   uint32
	headerSize uint16
	numBlocks  uint16
}

func parseStdHeader(c *cursor, magic string) (stdHeader, error) {
	var h stdHeader
	raw, err := c.bytes(4)
	if err != nil {
		return h, err
	}
	copy(h.magic[:], raw)
	if string(h.magic[:]) != magic {
		return h, fmt.Errorf("%w: expected magic %q, got %q", ErrMalformedSDAT, magic, h.magic[:])
	}
	if h.byteOrder, err = c.u16(); err != nil {
		return h, err
	}
	if h.byteOrder != 0xFEFF {
		return h, fmt.Errorf("%w: unexpected byte-order mark 0x%04X", ErrMalformedSDAT, h.byteOrder)
	}
	if h.version, err = c.u16(); err != nil {
		return h, err
	}
	if h.fileSize, err = c.u32(); err != nil {
		return h, err
	}
	if h.headerSize, err = c.u16(); err != nil {
		return h, err
	}
	if h.numBlocks, err = c.u16(); err != nil {
		return h, err
	}
	return h, nil
}

// blockRef is one (offset, size) pair from a block table.
type blockRef struct {
	offset uint32
	size   uint32
}

func readBlockRef(c *cursor) (blockRef, error) {
	off, err := c.u32()
	if err != nil {
		return blockRef{}, err
	}
	size, err := c.u32()
	if err != nil {
		return blockRef{}, err
	}
	return blockRef{offset: off, size: size}, nil
}

func (b blockRef) validate(fileLen int) error {
	if b.offset == 0 && b.size == 0 {
		return nil
	}
	end := uint64(b.offset) + uint64(b.size)
	if end > uint64(fileLen) {
		return fmt.Errorf("%w: block [%d,%d) exceeds file length %d", ErrMalformedSDAT, b.offset, end, fileLen)
	}
	return nil
}
