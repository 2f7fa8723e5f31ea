// Package replaygain implements the ReplayGain-style loudness analyzer
// (spec.md §4.10, C10): a cascaded Yule-Walker/Butterworth IIR filter
// per channel, RMS energy accumulated over fixed-duration windows,
// a loudness histogram, and the 95th-percentile gain/peak figures a
// track or album need for pkg/stream's volume normalization.
package replaygain

import "math"

const (
	stepsPerDB       = 100
	maxDB            = 120.0
	referenceLevel   = 89.0
	gainPercentile   = 0.95
	rmsWindowSeconds = 0.050
)

// iirState is one direct-form-II IIR filter's running history.
type iirState struct {
	coeffs filterCoeffs
	xHist  []float64
	yHist  []float64
}

func newIIRState(c filterCoeffs) *iirState {
	return &iirState{coeffs: c, xHist: make([]float64, len(c.b)), yHist: make([]float64, len(c.a)-1)}
}

func (s *iirState) step(x float64) float64 {
	copy(s.xHist[1:], s.xHist)
	s.xHist[0] = x

	y := 0.0
	for i, b := range s.coeffs.b {
		y += b * s.xHist[i]
	}
	for i := 1; i < len(s.coeffs.a); i++ {
		y -= s.coeffs.a[i] * s.yHist[i-1]
	}

	copy(s.yHist[1:], s.yHist)
	s.yHist[0] = y
	return y
}

// channelFilter cascades the Yule shelf filter into the Butterworth
// high-pass for one audio channel.
type channelFilter struct {
	yule, butter *iirState
}

func newChannelFilter(sampleRate int) *channelFilter {
	yule, butter := coefficientsFor(sampleRate)
	return &channelFilter{yule: newIIRState(yule), butter: newIIRState(butter)}
}

func (f *channelFilter) step(x float64) float64 {
	return f.butter.step(f.yule.step(x))
}

// Histogram is a loudness histogram in fixed dB bins (spec.md §4.10
// "histogram 10·log10(mean-square) into steps_per_dB * max_dB bins").
// Album analysis is the element-wise sum of its tracks' histograms.
type Histogram struct {
	bins  [stepsPerDB * int(maxDB)]uint32
	total uint64
}

func (h *Histogram) add(meanSquare float64) {
	if meanSquare <= 0 {
		return
	}
	db := 10 * math.Log10(meanSquare)
	bin := int(db * stepsPerDB)
	if bin < 0 {
		bin = 0
	}
	if bin >= len(h.bins) {
		bin = len(h.bins) - 1
	}
	h.bins[bin]++
	h.total++
}

func (h *Histogram) merge(other *Histogram) {
	for i, c := range other.bins {
		h.bins[i] += c
	}
	h.total += other.total
}

// gain reduces the histogram to a loudness figure: the dB value below
// which gainPercentile of the accumulated windows fall (spec.md §4.10
// "the gain is the 95th-percentile reference level minus the
// loudness"), then returns referenceLevel minus that loudness as a gain
// in dB.
func (h *Histogram) gain() float64 {
	if h.total == 0 {
		return 0
	}
	threshold := uint64(math.Ceil(float64(h.total) * (1 - gainPercentile)))
	var cumulative uint64
	for bin := len(h.bins) - 1; bin >= 0; bin-- {
		cumulative += uint64(h.bins[bin])
		if cumulative >= threshold {
			loudness := float64(bin) / stepsPerDB
			return referenceLevel - loudness
		}
	}
	return 0
}

// Analyzer accumulates one track's (or, via Merge, one album's) loudness
// histogram and peak sample amplitude as stereo samples stream through
// it.
type Analyzer struct {
	left, right *channelFilter
	windowSize  int
	windowPos   int
	windowSumSq float64

	histogram Histogram
	peak      float32
}

// NewAnalyzer builds an Analyzer for the given sample rate; sampleRate
// selects the nearest supported IIR coefficient table (coefficients.go).
func NewAnalyzer(sampleRate int) *Analyzer {
	windowSize := int(float64(sampleRate)*rmsWindowSeconds + 0.5)
	if windowSize < 1 {
		windowSize = 1
	}
	return &Analyzer{
		left:       newChannelFilter(sampleRate),
		right:      newChannelFilter(sampleRate),
		windowSize: windowSize,
	}
}

// AddSamples feeds one block of interleaved-by-channel stereo samples
// through the cascaded filters, tracking peak on the raw (unfiltered)
// amplitude and accumulating filtered energy into RMS windows.
func (a *Analyzer) AddSamples(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		if p := abs32(left[i]); p > a.peak {
			a.peak = p
		}
		if p := abs32(right[i]); p > a.peak {
			a.peak = p
		}

		fl := a.left.step(float64(left[i]))
		fr := a.right.step(float64(right[i]))
		a.windowSumSq += fl*fl + fr*fr
		a.windowPos++
		if a.windowPos >= a.windowSize {
			meanSquare := a.windowSumSq / float64(2*a.windowSize)
			a.histogram.add(meanSquare)
			a.windowPos = 0
			a.windowSumSq = 0
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// TrackGain is the finished per-track ReplayGain figure (spec.md §4.10
// "Track and album variants").
type TrackGain struct {
	GainDeciBel float64
	Peak        float32
}

// Finish flushes any partial trailing window and returns this track's
// gain and peak.
func (a *Analyzer) Finish() TrackGain {
	if a.windowPos > 0 {
		meanSquare := a.windowSumSq / float64(2*a.windowPos)
		a.histogram.add(meanSquare)
		a.windowPos = 0
		a.windowSumSq = 0
	}
	return TrackGain{GainDeciBel: a.histogram.gain(), Peak: a.peak}
}

// Album accumulates an album's summed histogram and peak-of-peaks
// across the tracks fed into it via Merge (spec.md §4.10 "album just
// sums per-track histograms and tracks peak-of-peaks").
type Album struct {
	histogram Histogram
	peak      float32
}

// Merge folds one finished track's analyzer state into the album.
func (al *Album) Merge(a *Analyzer) {
	al.histogram.merge(&a.histogram)
	if a.peak > al.peak {
		al.peak = a.peak
	}
}

// Gain is the album's overall ReplayGain figure.
func (al *Album) Gain() TrackGain {
	return TrackGain{GainDeciBel: al.histogram.gain(), Peak: al.peak}
}
