package sdat

// Sequence is a parsed SSEQ: the opaque opcode byte stream the track
// interpreter (pkg/track) executes. SDAT itself does no opcode decoding —
// that is the interpreter's job — it only locates and slices out the byte
// range (spec.md §3: "opaque byte stream of opcodes").
type Sequence struct {
	Data []byte
}

func parseSequence(fileData []byte) (*Sequence, error) {
	c := newCursor(fileData)
	if _, err := parseStdHeader(c, "SSEQ"); err != nil {
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
	size, err := dataC.u32()
	if err != nil {
		return nil, err
	}
	body, err := dataC.bytes(int(size))
	if err != nil {
		return nil, err
	}
	return &Sequence{Data: body}, nil
}
