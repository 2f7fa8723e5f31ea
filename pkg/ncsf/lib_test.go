package ncsf

import (
	"bytes"
	"fmt"
	"testing"
)

func makeNCSF(t *testing.T, program []byte, tags map[string]string) []byte {
	t.Helper()
	c := &Container{Version: VersionNCSF, Program: program, Tags: newTags()}
	for k, v := range tags {
		c.Tags.Set(k, v)
	}
	data, err := Write(c)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return data
}

func TestResolveProgramOverlaysLibraryThenOwnProgram(t *testing.T) {
	libData := makeNCSF(t, []byte("AAAAAAAAAA"), nil)
	files := map[string][]byte{"base.ncsf": libData}

	ownProgram := []byte("BBB")
	own := &Container{Version: VersionNCSF, Program: ownProgram, Tags: newTags()}
	own.Tags.Set("_lib", "base.ncsf")

	resolve := func(name string) ([]byte, error) {
		data, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", name)
		}
		return data, nil
	}

	effective, err := ResolveProgram(own, resolve, false)
	if err != nil {
		t.Fatalf("ResolveProgram: %v", err)
	}
	want := []byte("BBBAAAAAAA") // own program overlaid onto the library's, library tail survives
	if !bytes.Equal(effective, want) {
		t.Fatalf("effective = %q, want %q", effective, want)
	}
}

func TestResolveProgramAppliesNumberedLibsInAscendingOrder(t *testing.T) {
	lib2 := makeNCSF(t, []byte("22"), nil)
	lib3 := makeNCSF(t, []byte("333"), nil)
	files := map[string][]byte{"lib2.ncsf": lib2, "lib3.ncsf": lib3}

	own := &Container{Version: VersionNCSF, Program: []byte("X"), Tags: newTags()}
	own.Tags.Set("_lib2", "lib2.ncsf")
	own.Tags.Set("_lib3", "lib3.ncsf")

	resolve := func(name string) ([]byte, error) { return files[name], nil }

	effective, err := ResolveProgram(own, resolve, false)
	if err != nil {
		t.Fatalf("ResolveProgram: %v", err)
	}
	// lib2 "22" overlaid first, then lib3 "333" overlaid on top (longer,
	// overwrites both bytes lib2 set plus extends by one), then own "X"
	// overlaid last onto byte 0 only.
	want := []byte("X33")
	if !bytes.Equal(effective, want) {
		t.Fatalf("effective = %q, want %q", effective, want)
	}
}

func TestResolveProgramSkipsMissingLibraryWhenAllowed(t *testing.T) {
	own := &Container{Version: VersionNCSF, Program: []byte("OWN"), Tags: newTags()}
	own.Tags.Set("_lib", "missing.ncsf")

	resolve := func(name string) ([]byte, error) { return nil, fmt.Errorf("not found") }

	effective, err := ResolveProgram(own, resolve, true)
	if err != nil {
		t.Fatalf("ResolveProgram with skipMissing: %v", err)
	}
	if !bytes.Equal(effective, []byte("OWN")) {
		t.Fatalf("effective = %q, want %q", effective, "OWN")
	}

	if _, err := ResolveProgram(own, resolve, false); err == nil {
		t.Fatal("expected an error for a missing library without skipMissing")
	}
}

func TestResolveTagsPropagatesMissingKeysFromLibrary(t *testing.T) {
	libData := makeNCSF(t, []byte("L"), map[string]string{
		"replaygain_album_gain": "-3.0 dB",
		"title":                 "Library Title",
	})
	files := map[string][]byte{"base.ncsf": libData}

	own := &Container{Version: VersionNCSF, Program: []byte("O"), Tags: newTags()}
	own.Tags.Set("_lib", "base.ncsf")
	own.Tags.Set("title", "Own Title")

	resolve := func(name string) ([]byte, error) { return files[name], nil }

	merged, err := ResolveTags(own, resolve, false)
	if err != nil {
		t.Fatalf("ResolveTags: %v", err)
	}
	if v, _ := merged.Get("title"); v != "Own Title" {
		t.Fatalf("title = %q, want %q (own tag should win)", v, "Own Title")
	}
	if v, ok := merged.Get("replaygain_album_gain"); !ok || v != "-3.0 dB" {
		t.Fatalf("replaygain_album_gain = %q, %v, want %q, true (propagated from library)", v, ok, "-3.0 dB")
	}
}
