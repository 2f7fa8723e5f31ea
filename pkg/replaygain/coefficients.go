package replaygain

// filterCoeffs holds one IIR stage's feed-forward (b) and feed-back (a)
// coefficients in direct-form II, a[0] implicitly 1.
type filterCoeffs struct {
	b []float64
	a []float64
}

// rateFilters is one supported sample rate's cascaded Yule-Walker
// 10th-order shelf filter followed by a 2nd-order Butterworth high-pass
// (spec.md §4.10 "two cascaded IIR filters ... whose coefficients vary
// per supported sample rate"). These are the standard ReplayGain
// reference filter tables; rates not listed here fall back to the
// nearest one in supportedRates (see coefficientsFor).
var rateFilters = map[int]struct {
	yule   filterCoeffs
	butter filterCoeffs
}{
	44100: {
		yule: filterCoeffs{
			b: []float64{
				0.05418656406430, -0.02911007808948, -0.00848709379092,
				-0.00851165645469, -0.00834990904936, 0.02245293253339,
				-0.02596338512915, 0.01624864962975, -0.00240879051584,
				0.00674613682247, -0.00187763777362,
			},
			a: []float64{
				1.00000000000000, -3.47845948550071, 6.36317777566148,
				-8.54751527471874, 9.47693607801280, -8.81498681370155,
				6.85401540936998, -4.39470996079559, 2.19611684890774,
				-0.75104302451432, 0.13149317958808,
			},
		},
		butter: filterCoeffs{
			b: []float64{0.98621192462708, -1.97242384925416, 0.98621192462708},
			a: []float64{1.00000000000000, -1.97223372919836, 0.97261396931306},
		},
	},
	48000: {
		yule: filterCoeffs{
			b: []float64{
				0.03857599435200, -0.02160367184185, -0.00123395316851,
				-0.00009291677959, -0.01655260341619, 0.02161526843274,
				-0.02074045215285, 0.00594298065125, 0.00306428023191,
				0.00012025322027, 0.00288463683916,
			},
			a: []float64{
				1.00000000000000, -3.84664617118067, 7.81501653005538,
				-11.34170355132042, 13.05504219327545, -12.28759895145294,
				9.48293806319790, -5.87257861775999, 2.75465861874613,
				-0.86984376593551, 0.13919314567432,
			},
		},
		butter: filterCoeffs{
			b: []float64{0.98500175787242, -1.97000351574484, 0.98500175787242},
			a: []float64{1.00000000000000, -1.96977855582618, 0.97022847566350},
		},
	},
	32000: {
		yule: filterCoeffs{
			b: []float64{
				0.15457299681924, -0.09331049056315, -0.06247880153653,
				0.02163541888798, -0.05588393329856, 0.04781476674921,
				0.00222312597743, 0.03174092540049, -0.01390589421898,
				0.00651420667831, -0.00881362733839,
			},
			a: []float64{
				1.00000000000000, -2.37898834973084, 2.84868151156327,
				-2.64577170229825, 2.23697657451713, -1.67148153367602,
				1.00595954808547, -0.45953458054983, 0.16378164858596,
				-0.05032077717131, 0.02160899341119,
			},
		},
		butter: filterCoeffs{
			b: []float64{0.97938932735214, -1.95877865470428, 0.97938932735214},
			a: []float64{1.00000000000000, -1.95835380975398, 0.95920349965459},
		},
	},
}

// supportedRates is rateFilters' keys in ascending order, used by
// coefficientsFor's nearest-rate fallback.
var supportedRates = []int{32000, 44100, 48000}

func coefficientsFor(sampleRate int) (yule, butter filterCoeffs) {
	if f, ok := rateFilters[sampleRate]; ok {
		return f.yule, f.butter
	}
	nearest := supportedRates[0]
	for _, r := range supportedRates {
		if abs(r-sampleRate) < abs(nearest-sampleRate) {
			nearest = r
		}
	}
	f := rateFilters[nearest]
	return f.yule, f.butter
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
