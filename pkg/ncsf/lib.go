package ncsf

import (
	"errors"
	"fmt"
)

// maxLibDepth bounds "_lib" recursion (spec.md §3 "up to 10 levels
// deep").
const maxLibDepth = 10

// ErrLibraryTooDeep marks a "_lib" chain that recurses past maxLibDepth.
var ErrLibraryTooDeep = errors.New("ncsf: _lib chain exceeds maximum depth")

// Resolver loads the raw bytes of a sibling NCSF file named by a "_lib"
// tag (typically relative to the file currently being resolved).
type Resolver func(name string) ([]byte, error)

// ResolveProgram builds the effective SDAT program for c by overlaying
// its "_lib" chain (spec.md §3 "_lib chains", §4.1): first the "_lib"
// target (recursively resolving its own chain, depth-first), then
// "_lib2", "_lib3", ... in ascending order, then c's own program last —
// later writes overwrite earlier ones, without truncating a longer base.
//
// skipMissing controls spec.md §7 error kind 3: when true, a library
// that fails to resolve (missing file, malformed container) is silently
// dropped instead of aborting — the posture used when reading partial
// libraries purely for tag propagation.
func ResolveProgram(c *Container, resolve Resolver, skipMissing bool) ([]byte, error) {
	return resolveChain(c, resolve, skipMissing, 0)
}

func resolveChain(c *Container, resolve Resolver, skipMissing bool, depth int) ([]byte, error) {
	if depth > maxLibDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrLibraryTooDeep, depth)
	}

	var effective []byte
	for _, libName := range c.Tags.LibChain() {
		sub, err := resolveLibrary(libName, resolve, skipMissing, depth)
		if err != nil {
			if skipMissing {
				continue
			}
			return nil, err
		}
		effective = overlay(effective, sub)
	}
	effective = overlay(effective, c.Program)
	return effective, nil
}

func resolveLibrary(name string, resolve Resolver, skipMissing bool, depth int) ([]byte, error) {
	raw, err := resolve(name)
	if err != nil {
		return nil, fmt.Errorf("ncsf: resolving library %q: %w", name, err)
	}
	lib, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("ncsf: parsing library %q: %w", name, err)
	}
	return resolveChain(lib, resolve, skipMissing, depth+1)
}

// overlay copies src onto dst starting at offset 0, growing dst if src
// is longer but never truncating it if src is shorter — the partial
// overwrite semantics spec.md §3 describes for "_lib" overlay.
func overlay(dst, src []byte) []byte {
	if len(src) > len(dst) {
		grown := make([]byte, len(src))
		copy(grown, dst)
		dst = grown
	}
	copy(dst, src)
	return dst
}

// ResolveTags merges c's "_lib" chain's tags underneath c's own tags,
// in the same depth-first-then-ascending-then-self order as
// ResolveProgram, so a tag absent from c but present on a library
// (commonly replaygain or length figures shared across an album) still
// propagates. c's own tags always win on key collision.
func ResolveTags(c *Container, resolve Resolver, skipMissing bool) (*Tags, error) {
	merged, err := resolveTagChain(c, resolve, skipMissing, 0)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func resolveTagChain(c *Container, resolve Resolver, skipMissing bool, depth int) (*Tags, error) {
	if depth > maxLibDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrLibraryTooDeep, depth)
	}

	merged := newTags()
	for _, libName := range c.Tags.LibChain() {
		raw, err := resolve(libName)
		if err != nil {
			if skipMissing {
				continue
			}
			return nil, fmt.Errorf("ncsf: resolving library %q: %w", libName, err)
		}
		lib, err := Parse(raw)
		if err != nil {
			if skipMissing {
				continue
			}
			return nil, fmt.Errorf("ncsf: parsing library %q: %w", libName, err)
		}
		subTags, err := resolveTagChain(lib, resolve, skipMissing, depth+1)
		if err != nil {
			if skipMissing {
				continue
			}
			return nil, err
		}
		for _, key := range subTags.Keys() {
			v, _ := subTags.Get(key)
			merged.Set(key, v)
		}
	}
	for _, key := range c.Tags.Keys() {
		v, _ := c.Tags.Get(key)
		merged.Set(key, v)
	}
	return merged, nil
}
