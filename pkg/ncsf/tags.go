package ncsf

import (
	"fmt"
	"strconv"
	"strings"
)

// Tags is the ordered, case-insensitive key=value multimap trailing an
// NCSF file (spec.md §3 "NCSF wrapper", §6 "Tag keys recognised by the
// core"). Repeated lines sharing a key join into one multi-line value,
// separated by "\n"; lookups are case-insensitive but the first-seen
// case of each key is preserved for Write.
type Tags struct {
	order    []string // lowercase keys, first-seen order
	original map[string]string
	values   map[string]string
}

func newTags() *Tags {
	return &Tags{original: make(map[string]string), values: make(map[string]string)}
}

// Len reports the number of distinct keys.
func (t *Tags) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Get looks up a tag by case-insensitive key.
func (t *Tags) Get(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.values[strings.ToLower(key)]
	return v, ok
}

// Set overwrites (or creates) a tag, preserving the given case if the
// key is new.
func (t *Tags) Set(key, value string) {
	lk := strings.ToLower(key)
	if _, ok := t.values[lk]; !ok {
		t.order = append(t.order, lk)
		t.original[lk] = key
	}
	t.values[lk] = value
}

// Append adds a line to a tag, joining with "\n" if the key already has
// a value — the multi-line convention spec.md §3 describes.
func (t *Tags) Append(key, value string) {
	lk := strings.ToLower(key)
	if existing, ok := t.values[lk]; ok {
		t.values[lk] = existing + "\n" + value
		return
	}
	t.order = append(t.order, lk)
	t.original[lk] = key
	t.values[lk] = value
}

// Keys returns tag keys in first-seen order, in their original case.
func (t *Tags) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.order))
	for i, lk := range t.order {
		out[i] = t.original[lk]
	}
	return out
}

// Clone deep-copies the tag set.
func (t *Tags) Clone() *Tags {
	c := newTags()
	for _, lk := range t.order {
		c.order = append(c.order, lk)
		c.original[lk] = t.original[lk]
		c.values[lk] = t.values[lk]
	}
	return c
}

// parseTags decodes the "[TAG]"-prefixed footer. It decodes under the
// system codepage (Latin-1: each byte maps to the identical code point,
// needing no library) by default, then re-decodes the same bytes as
// UTF-8 if a "utf8=1" tag turns up, matching spec.md §3's "a utf8=1 tag
// flips the decoding ... and the file is re-parsed from scratch".
func parseTags(data []byte) (*Tags, error) {
	if !strings.HasPrefix(string(data[:min(len(data), len(tagFooterTag))]), tagFooterTag) {
		return nil, fmt.Errorf("%w: tag footer missing %q marker", ErrMalformedContainer, tagFooterTag)
	}
	body := data[len(tagFooterTag):]

	tags := decodeTagLines(body, decodeLatin1)
	if v, ok := tags.Get("utf8"); ok && v == "1" {
		tags = decodeTagLines(body, decodeUTF8)
	}
	return tags, nil
}

func decodeTagLines(body []byte, decode func([]byte) string) *Tags {
	t := newTags()
	text := decode(body)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		t.Append(line[:eq], line[eq+1:])
	}
	return t
}

func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func decodeUTF8(b []byte) string {
	return string(b)
}

// writeTags re-encodes a Tags set to "[TAG]"-prefixed bytes, splitting
// multi-line values back into repeated key=line entries.
func writeTags(t *Tags) ([]byte, error) {
	var buf strings.Builder
	buf.WriteString(tagFooterTag)
	for _, lk := range t.order {
		key := t.original[lk]
		for _, line := range strings.Split(t.values[lk], "\n") {
			buf.WriteString(key)
			buf.WriteByte('=')
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return []byte(buf.String()), nil
}

// Volume parses the "volume" tag as a default linear volume (spec.md §6).
func (t *Tags) Volume() (float64, bool) {
	v, ok := t.Get("volume")
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ReplayGainDeciBel parses "replaygain_track_gain" or
// "replaygain_album_gain", tolerating an optional " dB" suffix.
func (t *Tags) ReplayGainDeciBel(scope string) (float64, bool) {
	v, ok := t.Get("replaygain_" + scope + "_gain")
	if !ok {
		return 0, false
	}
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(v, "dB")), " ")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ReplayGainPeak parses "replaygain_track_peak" or
// "replaygain_album_peak" as a linear peak amplitude.
func (t *Tags) ReplayGainPeak(scope string) (float64, bool) {
	v, ok := t.Get("replaygain_" + scope + "_peak")
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Duration parses "length" or "fade" in HH:MM:SS.fff, MM:SS.fff, or
// plain-seconds form (spec.md §6).
func (t *Tags) Duration(key string) (seconds float64, ok bool, err error) {
	v, present := t.Get(key)
	if !present {
		return 0, false, nil
	}
	v = strings.TrimSpace(v)
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, true, fmt.Errorf("ncsf: malformed duration tag %q=%q", key, v)
	}

	var total float64
	for _, p := range parts {
		f, perr := strconv.ParseFloat(p, 64)
		if perr != nil {
			return 0, true, fmt.Errorf("ncsf: malformed duration tag %q=%q: %w", key, v, perr)
		}
		total = total*60 + f
	}
	return total, true, nil
}

// LibChain returns the "_lib", "_lib2", "_lib3", ... values in overlay
// order: "_lib" first, then numbered keys ascending (spec.md §3 "_lib
// chains").
func (t *Tags) LibChain() []string {
	var chain []string
	if v, ok := t.Get("_lib"); ok {
		chain = append(chain, v)
	}
	for n := 2; ; n++ {
		v, ok := t.Get(fmt.Sprintf("_lib%d", n))
		if !ok {
			break
		}
		chain = append(chain, v)
	}
	return chain
}
