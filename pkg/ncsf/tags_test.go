package ncsf

import "testing"

func TestAppendJoinsRepeatedKeysWithNewline(t *testing.T) {
	tags := newTags()
	tags.Append("comment", "line one")
	tags.Append("comment", "line two")
	got, ok := tags.Get("comment")
	if !ok || got != "line one\nline two" {
		t.Fatalf("comment = %q, %v, want %q, true", got, ok, "line one\nline two")
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	tags := newTags()
	tags.Set("Title", "Song")
	if v, ok := tags.Get("title"); !ok || v != "Song" {
		t.Fatalf("Get(title) = %q, %v, want %q, true", v, ok, "Song")
	}
}

func TestKeysPreservesFirstSeenCaseAndOrder(t *testing.T) {
	tags := newTags()
	tags.Set("Artist", "A")
	tags.Set("Title", "T")
	tags.Set("artist", "A2") // same key, different case: overwrites value, not position
	got := tags.Keys()
	want := []string{"Artist", "Title"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if v, _ := tags.Get("artist"); v != "A2" {
		t.Fatalf("artist = %q, want %q", v, "A2")
	}
}

func TestParseTagsDecodesLatin1ByDefault(t *testing.T) {
	// 0xE9 in Latin-1 is U+00E9 (é); under UTF-8 it would be invalid
	// as a lone byte.
	body := []byte(tagFooterTag + "title=caf\xe9\n")
	tags, err := parseTags(body)
	if err != nil {
		t.Fatalf("parseTags: %v", err)
	}
	got, _ := tags.Get("title")
	want := "café"
	if got != want {
		t.Fatalf("title = %q, want %q", got, want)
	}
}

func TestParseTagsRedecodesAsUTF8WhenUtf8TagPresent(t *testing.T) {
	body := append([]byte(tagFooterTag+"utf8=1\ntitle="), []byte("café")...)
	body = append(body, '\n')
	tags, err := parseTags(body)
	if err != nil {
		t.Fatalf("parseTags: %v", err)
	}
	got, _ := tags.Get("title")
	if got != "café" {
		t.Fatalf("title = %q, want %q", got, "café")
	}
}

func TestDurationParsesSecondsMinutesAndHoursForms(t *testing.T) {
	tags := newTags()
	tags.Set("length", "90.5")
	tags.Set("fade", "1:30.25")

	length, ok, err := tags.Duration("length")
	if err != nil || !ok || length != 90.5 {
		t.Fatalf("length = %v, %v, %v, want 90.5, true, nil", length, ok, err)
	}
	fade, ok, err := tags.Duration("fade")
	if err != nil || !ok || fade != 90.25 {
		t.Fatalf("fade = %v, %v, %v, want 90.25, true, nil", fade, ok, err)
	}
}

func TestDurationHMSForm(t *testing.T) {
	tags := newTags()
	tags.Set("length", "1:02:03.5")
	got, ok, err := tags.Duration("length")
	if err != nil || !ok {
		t.Fatalf("Duration: %v, %v, %v", got, ok, err)
	}
	want := 1*3600 + 2*60 + 3.5
	if got != want {
		t.Fatalf("length = %v, want %v", got, want)
	}
}

func TestReplayGainDeciBelStripsDBSuffix(t *testing.T) {
	tags := newTags()
	tags.Set("replaygain_track_gain", "-6.20 dB")
	got, ok := tags.ReplayGainDeciBel("track")
	if !ok || got != -6.20 {
		t.Fatalf("ReplayGainDeciBel = %v, %v, want -6.20, true", got, ok)
	}
}

func TestReplayGainPeakParsesLinearValue(t *testing.T) {
	tags := newTags()
	tags.Set("replaygain_album_peak", "0.987654")
	got, ok := tags.ReplayGainPeak("album")
	if !ok || got != 0.987654 {
		t.Fatalf("ReplayGainPeak = %v, %v, want 0.987654, true", got, ok)
	}
}

func TestLibChainOrdersLibThenAscendingNumbered(t *testing.T) {
	tags := newTags()
	tags.Set("_lib3", "c.ncsf")
	tags.Set("_lib", "a.ncsf")
	tags.Set("_lib2", "b.ncsf")
	got := tags.LibChain()
	want := []string{"a.ncsf", "b.ncsf", "c.ncsf"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("LibChain() = %v, want %v", got, want)
		}
	}
}

func TestWriteTagsRoundTripsThroughParseTags(t *testing.T) {
	tags := newTags()
	tags.Set("title", "Song")
	tags.Append("comment", "line one")
	tags.Append("comment", "line two")

	encoded, err := writeTags(tags)
	if err != nil {
		t.Fatalf("writeTags: %v", err)
	}
	got, err := parseTags(encoded)
	if err != nil {
		t.Fatalf("parseTags: %v", err)
	}
	if v, _ := got.Get("title"); v != "Song" {
		t.Fatalf("title = %q, want %q", v, "Song")
	}
	if v, _ := got.Get("comment"); v != "line one\nline two" {
		t.Fatalf("comment = %q, want %q", v, "line one\nline two")
	}
}
