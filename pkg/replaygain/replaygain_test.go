package replaygain

import "testing"

func TestChannelFilterPassesSilenceThroughAsSilence(t *testing.T) {
	f := newChannelFilter(44100)
	for i := 0; i < 100; i++ {
		if got := f.step(0); got != 0 {
			t.Fatalf("step %d on silence = %v, want 0", i, got)
		}
	}
}

func TestAnalyzerTracksPeakAmplitude(t *testing.T) {
	a := NewAnalyzer(44100)
	left := []float32{0.1, -0.8, 0.3}
	right := []float32{0.2, 0.4, -0.05}
	a.AddSamples(left, right)
	got := a.Finish()
	if got.Peak != 0.8 {
		t.Fatalf("Peak = %v, want 0.8", got.Peak)
	}
}

func TestHistogramGainIsZeroWhenEmpty(t *testing.T) {
	var h Histogram
	if got := h.gain(); got != 0 {
		t.Fatalf("gain() on an empty histogram = %v, want 0", got)
	}
}

func TestAlbumMergeTracksPeakOfPeaks(t *testing.T) {
	a1 := NewAnalyzer(44100)
	a1.AddSamples([]float32{0.3}, []float32{0.1})
	a1.Finish()

	a2 := NewAnalyzer(44100)
	a2.AddSamples([]float32{0.9}, []float32{0.2})
	a2.Finish()

	var album Album
	album.Merge(a1)
	album.Merge(a2)
	if album.peak != 0.9 {
		t.Fatalf("album peak = %v, want 0.9 (the louder track's peak)", album.peak)
	}
}

func alternatingSignal(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = 0.2
		} else {
			s[i] = -0.2
		}
	}
	return s
}

func TestAlbumHistogramSumsTrackTotals(t *testing.T) {
	a1 := NewAnalyzer(100) // tiny rate => a handful of samples fills a window
	a1.AddSamples(alternatingSignal(50), alternatingSignal(50))
	a1.Finish()

	a2 := NewAnalyzer(100)
	a2.AddSamples(alternatingSignal(50), alternatingSignal(50))
	a2.Finish()

	var album Album
	album.Merge(a1)
	album.Merge(a2)
	want := a1.histogram.total + a2.histogram.total
	if album.histogram.total != want {
		t.Fatalf("album histogram total = %d, want %d", album.histogram.total, want)
	}
}

func TestCoefficientsForFallsBackToNearestSupportedRate(t *testing.T) {
	yule96k, _ := coefficientsFor(96000)
	yule48k, _ := coefficientsFor(48000)
	if yule96k.b[0] != yule48k.b[0] {
		t.Fatalf("96kHz should fall back to the 48kHz table, b[0] = %v want %v", yule96k.b[0], yule48k.b[0])
	}

	yule22k, _ := coefficientsFor(22050)
	yule32k, _ := coefficientsFor(32000)
	if yule22k.b[0] != yule32k.b[0] {
		t.Fatalf("22050Hz should fall back to the 32kHz table, b[0] = %v want %v", yule22k.b[0], yule32k.b[0])
	}
}

func TestCoefficientsForExactRateUsesItsOwnTable(t *testing.T) {
	yule, butter := coefficientsFor(44100)
	if len(yule.b) != 11 || len(yule.a) != 11 {
		t.Fatalf("44100Hz yule filter order = %d/%d, want 11/11", len(yule.b), len(yule.a))
	}
	if len(butter.b) != 3 || len(butter.a) != 3 {
		t.Fatalf("44100Hz butterworth filter order = %d/%d, want 3/3", len(butter.b), len(butter.a))
	}
}
