package sdat

import "errors"

// Error kinds for SDAT parsing (spec.md §7 kind 2: Malformed SDAT).
var (
	ErrMalformedSDAT = errors.New("sdat: malformed container")
	ErrMissingFile   = errors.New("sdat: referenced file not present in FAT")
)
