// Package sdat parses the SDAT container: its SYMB/INFO/FAT sections and
// the nested SBNK/SWAR/SSEQ/SWAV files they reference (spec.md §3, §4.2).
//
// Parse is cheap — it walks the section tables and the FAT but does not
// eagerly decode every bank, archive and sequence in the file. Callers
// (typically pkg/player, preparing one sequence to play) materialize the
// handful of files they actually need through Bank/WaveArchive/Sequence,
// which are cached per SDAT so repeated lookups of the same file-ID are
// free after the first.
package sdat

import (
	"fmt"
	"sync"
)

// SDAT is the parsed root container (spec.md §3). It is immutable and
// safe to share (read-only) across multiple concurrently playing
// sequences and the timing variant — nothing in this package mutates a
// *SDAT after Parse returns except the materialization caches, which are
// themselves append-only and mutex-guarded.
type SDAT struct {
	Symbols *SymbolTable
	Info    *InfoTables
	FAT     []FATRecord

	raw []byte

	mu       sync.Mutex
	banks    map[int]*Bank
	archives map[int]*WaveArchive
	seqs     map[int]*Sequence
}

const numBlockSlots = 4

// Parse decodes an SDAT container from raw bytes — the bytes produced by
// decompressing an NCSF program section, or the bytes of a standalone
// .sdat file.
func Parse(data []byte) (*SDAT, error) {
	c := newCursor(data)
	if _, err := parseStdHeader(c, "SDAT"); err != nil {
		return nil, err
	}

	var blocks [numBlockSlots]blockRef
	for i := range blocks {
		b, err := readBlockRef(c)
		if err != nil {
			return nil, err
		}
		if err := b.validate(len(data)); err != nil {
			return nil, err
		}
		blocks[i] = b
	}

	symb, err := parseSymb(data, blocks[0])
	if err != nil {
		return nil, fmt.Errorf("sdat: SYMB: %w", err)
	}
	info, err := parseInfo(data, blocks[1])
	if err != nil {
		return nil, fmt.Errorf("sdat: INFO: %w", err)
	}
	fat, err := parseFAT(data, blocks[2])
	if err != nil {
		return nil, fmt.Errorf("sdat: FAT: %w", err)
	}
	fileBlock := blocks[3]
	for i, rec := range fat {
		end := uint64(rec.Offset) + uint64(rec.Size)
		if rec.Size != 0 && (uint64(rec.Offset) < uint64(fileBlock.offset) || end > uint64(fileBlock.offset+fileBlock.size)) {
			return nil, fmt.Errorf("%w: FAT entry %d [%d,%d) outside FILE region [%d,%d)",
				ErrMalformedSDAT, i, rec.Offset, end, fileBlock.offset, fileBlock.offset+fileBlock.size)
		}
	}

	return &SDAT{
		Symbols:  symb,
		Info:     info,
		FAT:      fat,
		raw:      data,
		banks:    make(map[int]*Bank),
		archives: make(map[int]*WaveArchive),
		seqs:     make(map[int]*Sequence),
	}, nil
}

func (s *SDAT) fileBytes(fileID int) ([]byte, error) {
	if fileID < 0 || fileID >= len(s.FAT) {
		return nil, fmt.Errorf("%w: file-id %d", ErrMissingFile, fileID)
	}
	rec := s.FAT[fileID]
	if rec.Size == 0 {
		return nil, fmt.Errorf("%w: file-id %d is empty", ErrMissingFile, fileID)
	}
	end := uint64(rec.Offset) + uint64(rec.Size)
	if end > uint64(len(s.raw)) {
		return nil, fmt.Errorf("%w: file-id %d out of range", ErrMalformedSDAT, fileID)
	}
	return s.raw[rec.Offset:end], nil
}

// Bank materializes and caches the SBNK at the given file-ID.
func (s *SDAT) Bank(fileID int) (*Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.banks[fileID]; ok {
		return b, nil
	}
	raw, err := s.fileBytes(fileID)
	if err != nil {
		return nil, err
	}
	b, err := parseBank(raw)
	if err != nil {
		return nil, err
	}
	s.banks[fileID] = b
	return b, nil
}

// WaveArchive materializes and caches the SWAR at the given file-ID.
func (s *SDAT) WaveArchive(fileID int) (*WaveArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.archives[fileID]; ok {
		return a, nil
	}
	raw, err := s.fileBytes(fileID)
	if err != nil {
		return nil, err
	}
	a, err := parseWaveArchive(raw)
	if err != nil {
		return nil, err
	}
	s.archives[fileID] = a
	return a, nil
}

// Sequence materializes and caches the SSEQ at the given file-ID.
func (s *SDAT) Sequence(fileID int) (*Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.seqs[fileID]; ok {
		return q, nil
	}
	raw, err := s.fileBytes(fileID)
	if err != nil {
		return nil, err
	}
	q, err := parseSequence(raw)
	if err != nil {
		return nil, err
	}
	s.seqs[fileID] = q
	return q, nil
}

// ResolveSequence looks up a sequence by its INFO index (the "sequence
// number" an NCSF reserved block selects, spec.md §6) and returns both
// the parsed sequence and its INFO record.
func (s *SDAT) ResolveSequence(seqIndex int) (*Sequence, SequenceInfo, error) {
	if seqIndex < 0 || seqIndex >= len(s.Info.Sequences) {
		return nil, SequenceInfo{}, fmt.Errorf("%w: sequence index %d", ErrMissingFile, seqIndex)
	}
	info := s.Info.Sequences[seqIndex]
	seq, err := s.Sequence(int(info.FileID))
	if err != nil {
		return nil, info, err
	}
	return seq, info, nil
}
