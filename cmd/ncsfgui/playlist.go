package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistItem is one entry in a Playlist: an NCSF/2SF path plus the
// tag-derived metadata shown in the UI without reopening the file.
type PlaylistItem struct {
	Path     string  `json:"path"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Duration float64 `json:"duration"` // seconds
	Comment  string  `json:"comment,omitempty"`
}

// Playlist manages a collection of NCSF/2SF files.
type Playlist struct {
	Name  string          `json:"name"`
	Items []*PlaylistItem `json:"items"`
}

func NewPlaylist(name string) *Playlist {
	return &Playlist{Name: name, Items: make([]*PlaylistItem, 0)}
}

func (p *Playlist) Add(item *PlaylistItem) {
	p.Items = append(p.Items, item)
}

func (p *Playlist) Remove(index int) error {
	if index < 0 || index >= len(p.Items) {
		return fmt.Errorf("index out of range")
	}
	p.Items = append(p.Items[:index], p.Items[index+1:]...)
	return nil
}

func (p *Playlist) MoveUp(index int) error {
	if index <= 0 || index >= len(p.Items) {
		return fmt.Errorf("cannot move item up")
	}
	p.Items[index], p.Items[index-1] = p.Items[index-1], p.Items[index]
	return nil
}

func (p *Playlist) MoveDown(index int) error {
	if index < 0 || index >= len(p.Items)-1 {
		return fmt.Errorf("cannot move item down")
	}
	p.Items[index], p.Items[index+1] = p.Items[index+1], p.Items[index]
	return nil
}

func (p *Playlist) Clear() {
	p.Items = make([]*PlaylistItem, 0)
}

func (p *Playlist) Size() int {
	return len(p.Items)
}

func (p *Playlist) Get(index int) (*PlaylistItem, error) {
	if index < 0 || index >= len(p.Items) {
		return nil, fmt.Errorf("index out of range")
	}
	return p.Items[index], nil
}

func (p *Playlist) Save(filename string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func LoadPlaylist(filename string) (*Playlist, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var playlist Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (p *Playlist) SaveM3U(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "#EXTM3U")
	fmt.Fprintf(file, "#PLAYLIST:%s\n", p.Name)
	for _, item := range p.Items {
		fmt.Fprintf(file, "#EXTINF:%d,%s - %s\n", int(item.Duration), item.Artist, item.Title)
		fmt.Fprintln(file, item.Path)
	}
	return nil
}

func LoadM3U(filename string) (*Playlist, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	playlist := NewPlaylist(filepath.Base(filename))
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(line))
		if ext == ".ncsf" || ext == ".2sf" || ext == ".minincsf" {
			playlist.Add(&PlaylistItem{Path: line, Title: filepath.Base(line), Artist: "Unknown"})
		}
	}
	return playlist, nil
}

func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, item := range p.Items {
		total += item.Duration
	}
	return total
}

// Shuffle randomizes item order with a Fisher-Yates pass driven by a
// throwaway LCG seeded from the clock. This deliberately does not reuse
// internal/lcg: that generator's state is shared with the sequencer's
// Random/RandomizeVariable opcodes, and a UI action like shuffling the
// playlist mid-playback must never perturb the deterministic draw
// sequence a currently-playing track depends on.
func (p *Playlist) Shuffle() {
	state := uint32(time.Now().UnixNano())
	next := func() uint32 {
		state = state*1664525 + 1013904223
		return state
	}
	for i := len(p.Items) - 1; i > 0; i-- {
		j := int(next() % uint32(i+1))
		p.Items[i], p.Items[j] = p.Items[j], p.Items[i]
	}
}

type SortBy int

const (
	SortByTitle SortBy = iota
	SortByArtist
	SortByDuration
	SortByPath
)

func (p *Playlist) Sort(by SortBy) {
	n := len(p.Items)
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-i-1; j++ {
			swap := false
			switch by {
			case SortByTitle:
				swap = p.Items[j].Title > p.Items[j+1].Title
			case SortByArtist:
				swap = p.Items[j].Artist > p.Items[j+1].Artist
			case SortByDuration:
				swap = p.Items[j].Duration > p.Items[j+1].Duration
			case SortByPath:
				swap = p.Items[j].Path > p.Items[j+1].Path
			}
			if swap {
				p.Items[j], p.Items[j+1] = p.Items[j+1], p.Items[j]
			}
		}
	}
}
