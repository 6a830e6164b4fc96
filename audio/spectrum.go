package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumConfig carries the analyzer constants. Defaults mirror the
// tuning for speech at 16 kHz; all of it is overridable from the config
// file so overlay authors can retune without a rebuild.
type SpectrumConfig struct {
	FFTSize    int
	Smoothing  float64 // EMA weight on the previous frame
	NoiseFloor float64
	BassGate   float64
	SpeechGate float64
	Bands      []BandConfig
}

// BandConfig is one perceptual band: a frequency range, a display
// weight, and whether the bass gate threshold applies.
type BandConfig struct {
	Low    float64
	High   float64
	Weight float64
	Bass   bool
}

// DefaultSpectrumConfig returns the speech tuning: bass down-weighted to
// reject room noise, the core speech range boosted.
func DefaultSpectrumConfig() SpectrumConfig {
	return SpectrumConfig{
		FFTSize:    512,
		Smoothing:  0.7,
		NoiseFloor: 0.01,
		BassGate:   0.30,
		SpeechGate: 0.20,
		Bands: []BandConfig{
			{Low: 20, High: 125, Weight: 0.2, Bass: true},
			{Low: 125, High: 250, Weight: 0.3, Bass: true},
			{Low: 250, High: 500, Weight: 1.2},
			{Low: 500, High: 1000, Weight: 2.5},
			{Low: 1000, High: 2000, Weight: 3.0},
			{Low: 2000, High: 4000, Weight: 2.0},
			{Low: 4000, High: 6000, Weight: 1.0},
			{Low: 6000, High: 8000, Weight: 0.8},
		},
	}
}

// Analyzer turns a sample stream into normalized band frames. One frame
// is produced per full FFT window. Not safe for concurrent use; each
// recording cycle owns its own Analyzer.
type Analyzer struct {
	cfg        SpectrumConfig
	sampleRate int

	fft    *fourier.FFT
	window []float64 // Hann coefficients
	buf    []float64
	n      int

	windowed []float64
	coeffs   []complex128
	prev     []float32
}

func NewAnalyzer(cfg SpectrumConfig, sampleRate int) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(cfg.FFTSize),
		window:     hannWindow(cfg.FFTSize),
		buf:        make([]float64, 0, cfg.FFTSize),
		windowed:   make([]float64, cfg.FFTSize),
		coeffs:     make([]complex128, cfg.FFTSize/2+1),
		prev:       make([]float32, len(cfg.Bands)),
	}
}

// Push adds one normalized sample. When the FFT window fills it returns
// a fresh band frame and true.
func (a *Analyzer) Push(sample float64) ([]float32, bool) {
	a.buf = append(a.buf, sample)
	if len(a.buf) < a.cfg.FFTSize {
		return nil, false
	}
	bands := a.compute()
	a.buf = a.buf[:0]
	return bands, true
}

func (a *Analyzer) compute() []float32 {
	for i, s := range a.buf {
		a.windowed[i] = s * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.windowed)

	bands := make([]float32, len(a.cfg.Bands))
	for i, band := range a.cfg.Bands {
		low, high := a.binRange(band)
		rms := a.binRMS(low, high)
		v := a.process(rms, band)

		// EMA against the previous frame to avoid visual jitter
		v = a.cfg.Smoothing*float64(a.prev[i]) + (1-a.cfg.Smoothing)*v
		bands[i] = float32(v)
		a.prev[i] = bands[i]
	}
	return bands
}

// binRange maps a band's frequency bounds to FFT bin indices. The upper
// bound is clamped at the Nyquist bin.
func (a *Analyzer) binRange(band BandConfig) (low, high int) {
	nyquist := float64(a.sampleRate) / 2
	binWidth := nyquist / (float64(a.cfg.FFTSize) / 2)
	low = int(band.Low / binWidth)
	high = int(band.High / binWidth)
	if limit := a.cfg.FFTSize / 2; high > limit {
		high = limit
	}
	return low, high
}

func (a *Analyzer) binRMS(low, high int) float64 {
	if low >= high {
		return 0
	}
	var sumSquares float64
	for _, c := range a.coeffs[low:high] {
		mag := cmplx.Abs(c)
		sumSquares += mag * mag
	}
	return math.Sqrt(sumSquares / float64(high-low))
}

// process runs the band pipeline: subtract the noise floor, weight,
// square-root compression, then the per-band noise gate rescaled back to
// [0,1].
func (a *Analyzer) process(rms float64, band BandConfig) float64 {
	signal := math.Max(rms-a.cfg.NoiseFloor, 0)
	compressed := math.Sqrt(signal * band.Weight)

	threshold := a.cfg.SpeechGate
	if band.Bass {
		threshold = a.cfg.BassGate
	}
	if compressed < threshold {
		return 0
	}
	v := (compressed - threshold) / (1 - threshold)
	return math.Min(math.Max(v, 0), 1)
}

// hannWindow tapers the block edges to reduce spectral leakage:
// w(n) = 0.5 * (1 - cos(2*pi*n/N)).
func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return w
}

// BandCount is the number of values per spectrum frame.
func (a *Analyzer) BandCount() int {
	return len(a.cfg.Bands)
}
