package calib

import (
	"fmt"
	"math"
)

// Reference pairs a known m/z value with the bin where its peak was
// observed. A calibrant mix measured on the instrument yields a handful of
// these.
type Reference struct {
	Mz  float64
	Bin float64
}

// Fit is a calibration recovered from reference peaks, with goodness-of-fit
// metrics over the references it was derived from.
type Fit struct {
	Slope     float64
	Intercept float64

	// RSquared is the coefficient of determination of the linearized fit
	// (0-1, higher is better).
	RSquared float64
	// RMSE is the root mean square error of the fitted conversion in m/z
	// units (lower is better).
	RMSE float64
}

// String returns a short human-readable summary of the fit.
func (f Fit) String() string {
	return fmt.Sprintf("Fit{Slope: %.6g, Intercept: %.6g, R²: %.4f, RMSE: %.4g}",
		f.Slope, f.Intercept, f.RSquared, f.RMSE)
}

// Params assembles conversion constants from the fit, with zero residual
// coefficients.
func (f Fit) Params(binWidth, tofCorrectionTime float64) Params {
	return Params{
		Slope:             f.Slope,
		Intercept:         f.Intercept,
		BinWidth:          binWidth,
		TOFCorrectionTime: tofCorrectionTime,
	}
}

// FitCalibration recovers slope and intercept from reference peaks by
// ordinary least squares.
//
// The conversion without residual terms is mz = (slope·(t − t₀ − intercept))²
// with t = bin·binWidth/1000 and t₀ = tofCorrectionTime/1000, which
// linearizes to √mz = slope·t + b where b = −slope·(t₀ + intercept). The
// line is fitted in √mz space and mapped back; residual mass-error
// coefficients are treated as zero, matching how instrument software seeds
// a calibration before polynomial refinement.
//
// At least two references with distinct bins and positive m/z are required.
func FitCalibration(refs []Reference, binWidth, tofCorrectionTime float64) (Fit, error) {
	if len(refs) < 2 {
		return Fit{}, fmt.Errorf("calibration fit needs at least 2 references, got %d", len(refs))
	}

	var sumX, sumY, sumXX, sumYY float64
	for _, ref := range refs {
		if ref.Mz <= 0 {
			return Fit{}, fmt.Errorf("reference m/z %g is not positive", ref.Mz)
		}
		x := ref.Bin * binWidth / 1000
		y := math.Sqrt(ref.Mz)
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
	}

	n := float64(len(refs))
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy, syy float64
	for _, ref := range refs {
		dx := ref.Bin*binWidth/1000 - meanX
		dy := math.Sqrt(ref.Mz) - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	// Degeneracy is judged against the uncentered magnitudes: identical
	// inputs leave only round-off in the centered sums, never exact zero.
	if sxx <= sumXX*1e-24 {
		return Fit{}, fmt.Errorf("references share a single bin, slope is undetermined")
	}
	if syy <= sumYY*1e-24 {
		return Fit{}, fmt.Errorf("references fit a flat line, calibration is degenerate")
	}

	slope := sxy / sxx
	if slope == 0 {
		return Fit{}, fmt.Errorf("references have no bin/m-z correlation, calibration is degenerate")
	}
	b := meanY - slope*meanX
	intercept := -b/slope - tofCorrectionTime/1000

	fit := Fit{Slope: slope, Intercept: intercept}

	// R² in the linearized space, RMSE in m/z space.
	var ssRes, sqErr float64
	params := fit.Params(binWidth, tofCorrectionTime)
	for _, ref := range refs {
		x := ref.Bin * binWidth / 1000
		y := math.Sqrt(ref.Mz)
		pred := slope*x + b
		ssRes += (y - pred) * (y - pred)

		dMz := params.BinToMz(ref.Bin) - ref.Mz
		sqErr += dMz * dMz
	}
	fit.RSquared = 1 - ssRes/syy
	fit.RMSE = math.Sqrt(sqErr / n)

	return fit, nil
}
