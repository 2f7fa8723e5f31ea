// Package cliutil holds the NCSF-decoding and option-mapping plumbing
// shared by the command-line front ends (cmd/ncsfplay, cmd/ncsf2wav):
// loading a file's resolved program and tags, turning spec.md §6's
// option group into a stream.Options, and the small text-formatting
// helpers both front ends print with.
package cliutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ncsfplay/ncsf-player/pkg/ncsf"
	"github.com/ncsfplay/ncsf-player/pkg/player"
	"github.com/ncsfplay/ncsf-player/pkg/sample"
	"github.com/ncsfplay/ncsf-player/pkg/sdat"
	"github.com/ncsfplay/ncsf-player/pkg/stream"
)

// Loaded bundles everything a front end needs after resolving an
// NCSF/2SF file's container, tag chain, and library-overlaid program.
type Loaded struct {
	Container *ncsf.Container
	Tags      *ncsf.Tags
	Program   []byte
	SDAT      *sdat.SDAT
}

// Load reads path, resolves its _lib chain for both program bytes and
// tags against sibling files in the same directory, and parses the
// resulting SDAT.
func Load(path string, skipMissingLibs bool) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	container, err := ncsf.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing NCSF container: %w", err)
	}

	resolve := SiblingResolver(path)
	tags, err := ncsf.ResolveTags(container, resolve, skipMissingLibs)
	if err != nil {
		return nil, fmt.Errorf("resolving tag chain: %w", err)
	}
	program, err := ncsf.ResolveProgram(container, resolve, skipMissingLibs)
	if err != nil {
		return nil, fmt.Errorf("resolving library chain: %w", err)
	}

	sd, err := sdat.Parse(program)
	if err != nil {
		return nil, fmt.Errorf("parsing SDAT: %w", err)
	}

	return &Loaded{Container: container, Tags: tags, Program: program, SDAT: sd}, nil
}

// SiblingResolver resolves _lib file names against the directory
// containing path, the natural place an NCSF looks for its libraries.
func SiblingResolver(path string) ncsf.Resolver {
	dir := filepath.Dir(path)
	return func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	}
}

// SequenceIndex picks the sequence to play: override if >= 0, else the
// file's reserved-block sequence number (spec.md §6).
func SequenceIndex(c *ncsf.Container, override int) int {
	if override >= 0 {
		return override
	}
	return int(c.SequenceNumber())
}

// ApplyMutes sets spec.md §6's channelMutes/trackMutes bitmasks onto an
// already-built Player: a muted track's Mute flag still lets its
// opcodes run (spec.md's mute only gates UpdateChannel's volume
// contribution), while a muted hardware channel is disabled outright.
func ApplyMutes(p *player.Player, channelMask, trackMask uint16) {
	for id, t := range p.Tracks {
		if t == nil {
			continue
		}
		if trackMask&(1<<uint(id)) != 0 {
			t.Mute = true
		}
	}
	for id, ch := range p.Channels {
		if ch == nil {
			continue
		}
		if channelMask&(1<<uint(id)) != 0 {
			ch.Reg.Enabled = false
		}
	}
}

// ParseInterpolation maps spec.md §6's interpolation names onto
// pkg/sample.Kind values. "sinc" names the Blackman-windowed kernel
// pkg/sample calls OldSinc to distinguish it from SimpleSinc.
func ParseInterpolation(name string) (sample.Kind, error) {
	switch strings.ToLower(name) {
	case "none":
		return sample.None, nil
	case "linear":
		return sample.Linear, nil
	case "lagrange4", "fourpointlagrange":
		return sample.FourPointLagrange, nil
	case "lagrange6", "sixpointlagrange":
		return sample.SixPointLagrange, nil
	case "sinc", "oldsinc":
		return sample.OldSinc, nil
	case "simplesinc":
		return sample.SimpleSinc, nil
	case "lanczos":
		return sample.Lanczos, nil
	default:
		return 0, fmt.Errorf("unknown interpolation kernel %q", name)
	}
}

// ResolveLengthAndFade picks a playback length and fade in samples:
// the file's length/fade tags if present, else a measured verdict from
// a fresh TimingPlayer (spec.md §4.9, C9) over the same sequence.
func ResolveLengthAndFade(sd *sdat.SDAT, seqIndex int, tags *ncsf.Tags, sampleRate int) (lengthSamples, fadeSamples int64) {
	if secs, ok, err := tags.Duration("length"); err == nil && ok {
		lengthSamples = SecondsToSamples(secs, sampleRate)
	}
	if secs, ok, err := tags.Duration("fade"); err == nil && ok {
		fadeSamples = SecondsToSamples(secs, sampleRate)
	}
	if lengthSamples > 0 {
		return lengthSamples, fadeSamples
	}

	measured, err := player.NewFromSequenceIndex(sd, seqIndex)
	if err != nil {
		return SecondsToSamples(180, sampleRate), fadeSamples
	}
	tp := player.NewTimingPlayer(measured, 0, 0)
	verdict := tp.Measure(sampleRate)
	lengthSamples = SecondsToSamples(verdict.Seconds, sampleRate)
	if fadeSamples == 0 && verdict.Type == player.PlayerTimeLoop {
		fadeSamples = SecondsToSamples(1, sampleRate)
	}
	return lengthSamples, fadeSamples
}

func SecondsToSamples(secs float64, sampleRate int) int64 {
	return int64(secs * float64(sampleRate))
}

// ParseDuration parses a CLI duration given either as plain seconds or
// as colon-separated mm:ss.fff / hh:mm:ss.fff.
func ParseDuration(s string) (float64, error) {
	if !strings.Contains(s, ":") {
		return strconv.ParseFloat(s, 64)
	}
	parts := strings.Split(s, ":")
	var total float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + v
	}
	return total, nil
}

// ApplyVolumeOptions implements spec.md §6's volumeType/peakType/
// volumeMultiplier/ignoreVolume option group on top of a stream.Options.
func ApplyVolumeOptions(opts *stream.Options, tags *ncsf.Tags, volumeType, peakType string, multiplier float64, ignoreVolume bool) {
	if ignoreVolume {
		opts.UserVolume = multiplier
		opts.ReplayGainEnabled = false
		opts.PeakScale = 0
		return
	}

	base := 1.0
	switch strings.ToLower(volumeType) {
	case "none", "":
	case "volume":
		if v, ok := tags.Volume(); ok {
			base = v
		}
	case "replaygain-track":
		if db, ok := tags.ReplayGainDeciBel("track"); ok {
			opts.ReplayGainEnabled = true
			opts.ReplayGainDeciBel = db
		}
	case "replaygain-album":
		db, ok := tags.ReplayGainDeciBel("album")
		if !ok {
			db, ok = tags.ReplayGainDeciBel("track")
		}
		if ok {
			opts.ReplayGainEnabled = true
			opts.ReplayGainDeciBel = db
		}
	}
	opts.UserVolume = base * multiplier

	switch strings.ToLower(peakType) {
	case "replaygain-track":
		if peak, ok := tags.ReplayGainPeak("track"); ok && peak != 0 && peak != 1 {
			opts.PeakScale = peak
		}
	case "replaygain-album":
		if peak, ok := tags.ReplayGainPeak("album"); ok && peak != 0 && peak != 1 {
			opts.PeakScale = peak
		}
	}
}

// FormatDuration renders a sample count as mm:ss at sampleRate.
func FormatDuration(samples int64, sampleRate int) string {
	if sampleRate <= 0 {
		return "00:00"
	}
	totalSeconds := int64(math.Round(float64(samples) / float64(sampleRate)))
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// MakeProgressBar renders an ASCII progress bar of the given width.
func MakeProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">"
		bar += strings.Repeat(" ", width-filled-1)
	}
	return bar
}
