// Command ncsfplay plays a single NCSF/2SF file, the outer command-line
// front-end spec.md §1 treats as an external collaborator and §6 fixes
// the interface to.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ncsfplay/ncsf-player/internal/cliutil"
	"github.com/ncsfplay/ncsf-player/pkg/audio"
	"github.com/ncsfplay/ncsf-player/pkg/player"
	"github.com/ncsfplay/ncsf-player/pkg/stream"
	"github.com/ncsfplay/ncsf-player/pkg/wavwriter"
)

var (
	sampleRate   = flag.Int("rate", 44100, "Sample rate (Hz)")
	bufferFrames = flag.Int("buffer", 2048, "Buffer size in frames")
	forever      = flag.Bool("loop", false, "Play forever, ignoring length/fade")
	volume       = flag.Float64("volume", 1.0, "Outer volume multiplier, always applied")
	interp       = flag.String("interp", "linear", "Interpolation kernel (none, linear, lagrange4, lagrange6, sinc, simplesinc, lanczos)")
	skipSilence  = flag.Int("skip-silence", 0, "Seconds of leading silence to skip (0 disables)")
	lengthFlag   = flag.String("length", "", "Override playback length (seconds, or mm:ss.fff)")
	fadeFlag     = flag.String("fade", "", "Override fade-out length (seconds, or mm:ss.fff)")
	volumeType   = flag.String("volume-type", "none", "Volume source: none, volume, replaygain-track, replaygain-album")
	peakType     = flag.String("peak-type", "none", "Peak clamp source: none, replaygain-track, replaygain-album")
	ignoreVolume = flag.Bool("ignore-volume", false, "Force volume modification to 1, ignoring volume-type/peak-type")
	channelMute  = flag.Uint("channel-mute", 0, "16-bit mask, one bit per hardware channel")
	trackMute    = flag.Uint("track-mute", 0, "16-bit mask, one bit per SSEQ track")
	seqOverride  = flag.Int("seq", -1, "Sequence index to play, overriding the file's reserved block")
	skipMissing  = flag.Bool("skip-missing-libs", false, "Tolerate a missing _lib file rather than failing")
	output       = flag.String("output", "oto", "Output backend (oto, wav, null)")
	wavFile      = flag.String("wav", "", "Output WAV file (when using wav output)")
	infoOnly     = flag.Bool("info", false, "Show file info only")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <ncsf-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "ncsfplay - play NCSF/2SF sequenced music files\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	ncsfPath := flag.Arg(0)

	loaded, err := cliutil.Load(ncsfPath, *skipMissing)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", ncsfPath, err)
	}

	title, _ := loaded.Tags.Get("title")
	artist, _ := loaded.Tags.Get("artist")
	comment, _ := loaded.Tags.Get("comment")
	fmt.Printf("Title:   %s\n", title)
	fmt.Printf("Artist:  %s\n", artist)
	if comment != "" {
		fmt.Printf("Comment: %s\n", comment)
	}

	seqIndex := cliutil.SequenceIndex(loaded.Container, *seqOverride)
	p, err := player.NewFromSequenceIndex(loaded.SDAT, seqIndex)
	if err != nil {
		log.Fatalf("Failed to resolve sequence %d: %v", seqIndex, err)
	}
	cliutil.ApplyMutes(p, uint16(*channelMute), uint16(*trackMute))

	kind, err := cliutil.ParseInterpolation(*interp)
	if err != nil {
		log.Fatalf("%v", err)
	}

	lengthSamples, fadeSamples := cliutil.ResolveLengthAndFade(loaded.SDAT, seqIndex, loaded.Tags, *sampleRate)
	if *lengthFlag != "" {
		secs, err := cliutil.ParseDuration(*lengthFlag)
		if err != nil {
			log.Fatalf("Invalid -length: %v", err)
		}
		lengthSamples = cliutil.SecondsToSamples(secs, *sampleRate)
	}
	if *fadeFlag != "" {
		secs, err := cliutil.ParseDuration(*fadeFlag)
		if err != nil {
			log.Fatalf("Invalid -fade: %v", err)
		}
		fadeSamples = cliutil.SecondsToSamples(secs, *sampleRate)
	}

	opts := stream.Options{
		SampleRate:         *sampleRate,
		Kind:               kind,
		SkipSilenceSeconds: *skipSilence,
		PlayForever:        *forever,
		LengthSamples:      lengthSamples,
		FadeSamples:        fadeSamples,
	}
	cliutil.ApplyVolumeOptions(&opts, loaded.Tags, *volumeType, *peakType, *volume, *ignoreVolume)

	fmt.Printf("Duration: %s\n\n", cliutil.FormatDuration(lengthSamples, *sampleRate))

	if *infoOnly {
		return
	}

	st := stream.New(p, opts)

	var audioOut audio.Output
	switch *output {
	case "oto":
		audioOut, err = audio.NewStreamingOtoOutput()
		if err != nil {
			fmt.Printf("Warning: failed to create audio output (%v)\n", err)
			fmt.Printf("Falling back to timing-based output...\n")
			audioOut, err = audio.NewFallbackOutput()
		}
	case "wav":
		if *wavFile == "" {
			*wavFile = strings.TrimSuffix(ncsfPath, filepath.Ext(ncsfPath)) + ".wav"
		}
		audioOut, err = cliutil.NewWAVOutput(*wavFile, *sampleRate, wavwriter.FormatFloat32)
	case "null":
		audioOut, err = audio.NewFallbackOutput()
	default:
		log.Fatalf("Unknown output backend: %s", *output)
	}
	if err != nil {
		log.Fatalf("Failed to create audio output: %v", err)
	}

	driver := audio.NewPlayer(st, audioOut)
	if err := driver.Start(*sampleRate, *bufferFrames); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}
	defer audioOut.Close()

	fmt.Printf("Playing... (Press Ctrl+C to stop)\n\n")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	totalSamples := lengthSamples + fadeSamples
	for {
		select {
		case <-sigChan:
			fmt.Printf("\n\nStopping...\n")
			driver.Stop()
			return
		case <-ticker.C:
			if !driver.IsPlaying() && !opts.PlayForever {
				fmt.Printf("\n\nPlayback finished.\n")
				return
			}
			if !opts.PlayForever && totalSamples > 0 {
				pos := st.Position()
				percent := float64(pos) / float64(totalSamples) * 100
				fmt.Printf("\r[%s] %s / %s (%.1f%%)",
					cliutil.MakeProgressBar(percent, 30),
					cliutil.FormatDuration(pos, *sampleRate),
					cliutil.FormatDuration(totalSamples, *sampleRate),
					percent)
			}
		}
	}
}
