// Command ncsf2wav renders an NCSF/2SF file straight to a WAV file with
// no live audio dependency, driving the stream as fast as the CPU
// allows instead of in real time.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncsfplay/ncsf-player/internal/cliutil"
	"github.com/ncsfplay/ncsf-player/pkg/player"
	"github.com/ncsfplay/ncsf-player/pkg/stream"
	"github.com/ncsfplay/ncsf-player/pkg/wavwriter"
)

var (
	sampleRate   = flag.Int("rate", 44100, "Sample rate (Hz)")
	outPath      = flag.String("o", "", "Output WAV path (default: input name with .wav extension)")
	format       = flag.String("format", "float32", "Sample format (int16, float32)")
	interp       = flag.String("interp", "linear", "Interpolation kernel (none, linear, lagrange4, lagrange6, sinc, simplesinc, lanczos)")
	skipSilence  = flag.Int("skip-silence", 0, "Seconds of leading silence to skip (0 disables)")
	lengthFlag   = flag.String("length", "", "Override playback length (seconds, or mm:ss.fff)")
	fadeFlag     = flag.String("fade", "", "Override fade-out length (seconds, or mm:ss.fff)")
	volumeType   = flag.String("volume-type", "none", "Volume source: none, volume, replaygain-track, replaygain-album")
	peakType     = flag.String("peak-type", "none", "Peak clamp source: none, replaygain-track, replaygain-album")
	volume       = flag.Float64("volume", 1.0, "Outer volume multiplier, always applied")
	ignoreVolume = flag.Bool("ignore-volume", false, "Force volume modification to 1")
	channelMute  = flag.Uint("channel-mute", 0, "16-bit mask, one bit per hardware channel")
	trackMute    = flag.Uint("track-mute", 0, "16-bit mask, one bit per SSEQ track")
	seqOverride  = flag.Int("seq", -1, "Sequence index to render, overriding the file's reserved block")
	skipMissing  = flag.Bool("skip-missing-libs", false, "Tolerate a missing _lib file rather than failing")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <ncsf-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "ncsf2wav - render an NCSF/2SF file to a WAV file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	ncsfPath := flag.Arg(0)

	wavFormat, err := parseFormat(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}

	loaded, err := cliutil.Load(ncsfPath, *skipMissing)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", ncsfPath, err)
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
		LengthSamples:      lengthSamples,
		FadeSamples:        fadeSamples,
	}
	cliutil.ApplyVolumeOptions(&opts, loaded.Tags, *volumeType, *peakType, *volume, *ignoreVolume)

	dest := *outPath
	if dest == "" {
		dest = strings.TrimSuffix(ncsfPath, filepath.Ext(ncsfPath)) + ".wav"
	}
	w, err := wavwriter.Create(dest, *sampleRate, wavFormat)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", dest, err)
	}

	st := stream.New(p, opts)
	fmt.Printf("Rendering %s (%s) to %s...\n", filepath.Base(ncsfPath), cliutil.FormatDuration(lengthSamples+fadeSamples, *sampleRate), dest)

	buf := make([]byte, 65536)
	for {
		n, err := st.Read(buf)
		if n > 0 {
			if werr := w.WriteBytes(buf[:n]); werr != nil {
				log.Fatalf("Write error: %v", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Render error: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		log.Fatalf("Failed to finalize %s: %v", dest, err)
	}
	fmt.Printf("Done.\n")
}

func parseFormat(name string) (wavwriter.Format, error) {
	switch strings.ToLower(name) {
	case "int16":
		return wavwriter.FormatInt16, nil
	case "float32":
		return wavwriter.FormatFloat32, nil
	default:
		return 0, fmt.Errorf("unknown WAV sample format %q", name)
	}
}
