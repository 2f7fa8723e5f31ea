package sdat

// FATRecord is one file allocation table entry: the absolute byte range
// of a materialized file inside the FILE region (spec.md §3, §4.2).
type FATRecord struct {
	Offset uint32
	Size   uint32
}

func parseFAT(data []byte, block blockRef) ([]FATRecord, error) {
	region := data[block.offset : block.offset+block.size]
	c := newCursor(region)
	if _, err := parseStdHeader(c, "FAT "); err != nil {
		return nil, err
	}
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	records := make([]FATRecord, count)
	for i := range records {
		off, err := c.u32()
		if err != nil {
			return nil, err
		}
		size, err := c.u32()
		if err != nil {
			return nil, err
		}
		c.skip(8) // reserved
		records[i] = FATRecord{Offset: off, Size: size}
	}
	return records, nil
}
