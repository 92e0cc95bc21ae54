// Package signalproc cleans parcellated time series before
// connectivity estimation: linear detrending, band-pass filtering in
// the frequency domain, per-parcel standardization, and warm-up volume
// removal.
package signalproc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Params controls the cleaning sequence.
type Params struct {
	// TRSeconds is the sampling interval of the series.
	TRSeconds float64

	// HighPassHz and LowPassHz bound the retained frequency band.
	HighPassHz float64
	LowPassHz  float64

	// Detrend removes a per-parcel linear trend before filtering.
	Detrend bool

	// Standardize z-scores each parcel series after filtering.
	Standardize bool

	// DropVolumes discards this many leading volumes after cleaning.
	DropVolumes int
}

// Clean applies detrend, band-pass, standardize, and warm-up removal to
// a volumes x parcels time series, in that order.
func Clean(ts *mat.Dense, p Params) (*mat.Dense, error) {
	volumes, parcels := ts.Dims()
	if p.TRSeconds <= 0 {
		return nil, fmt.Errorf("repetition time must be positive, got %g", p.TRSeconds)
	}
	if p.DropVolumes >= volumes {
		return nil, fmt.Errorf("cannot drop %d volumes from a series of %d", p.DropVolumes, volumes)
	}

	fft := fourier.NewFFT(volumes)
	cleaned := mat.NewDense(volumes, parcels, nil)
	column := make([]float64, volumes)
	for j := 0; j < parcels; j++ {
		mat.Col(column, j, ts)
		if p.Detrend {
			detrend(column)
		}
		bandpass(fft, column, p.TRSeconds, p.HighPassHz, p.LowPassHz)
		if p.Standardize {
			standardize(column)
		}
		cleaned.SetCol(j, column)
	}

	out := cleaned.Slice(p.DropVolumes, volumes, 0, parcels).(*mat.Dense)
	return mat.DenseCopyOf(out), nil
}

// detrend subtracts the least-squares line through the series, which
// also removes the mean.
func detrend(x []float64) {
	t := make([]float64, len(x))
	for i := range t {
		t[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(t, x, nil, false)
	for i := range x {
		x[i] -= alpha + beta*t[i]
	}
}

// bandpass zeroes Fourier coefficients outside [highHz, lowHz]. The DC
// component always falls below the high-pass edge and is removed.
func bandpass(fft *fourier.FFT, x []float64, tr, highHz, lowHz float64) {
	n := len(x)
	coeffs := fft.Coefficients(nil, x)
	for i := range coeffs {
		freqHz := fft.Freq(i) / tr
		if freqHz < highHz || freqHz > lowHz {
			coeffs[i] = 0
		}
	}
	fft.Sequence(x, coeffs)
	for i := range x {
		x[i] /= float64(n)
	}
}

// standardize z-scores the series in place. A constant series (zero
// variance) becomes all zeros rather than NaN.
func standardize(x []float64) {
	mean, std := stat.MeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		for i := range x {
			x[i] = 0
		}
		return
	}
	for i := range x {
		x[i] = (x[i] - mean) / std
	}
}
