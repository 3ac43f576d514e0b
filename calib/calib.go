// Package calib converts between time-of-flight bin indices and m/z using
// per-frame calibration constants.
//
// The forward conversion is pure arithmetic over the frame's slope,
// intercept and polynomial mass-error coefficients. It is monotonic
// increasing in the bin index for physically valid instrument parameters;
// the package does not enforce that, so garbage constants produce garbage
// m/z values without error.
package calib

// Params holds the per-frame constants needed for bin/mz conversion. Slope
// and intercept come from the frame's calibration; BinWidth and
// TOFCorrectionTime come from the file's global parameters. The six
// polynomial coefficients correct residual mass error and are zero when the
// frame carries none.
type Params struct {
	Slope             float64
	Intercept         float64
	BinWidth          float64 // ns per bin
	TOFCorrectionTime float64 // ns

	// Residual mass-error polynomial coefficients over odd powers of the
	// flight time (a2·t + b2·t³ + … + f2·t¹¹).
	A2, B2, C2, D2, E2, F2 float64
}

// HasResidual reports whether any polynomial coefficient is non-zero. When
// false, MzToBin can invert the conversion in closed form.
func (p Params) HasResidual() bool {
	return p.A2 != 0 || p.B2 != 0 || p.C2 != 0 || p.D2 != 0 || p.E2 != 0 || p.F2 != 0
}

// BinToMz converts a bin index to m/z.
//
// The flight time is t = bin·BinWidth/1000; the residual mass error is the
// odd-power polynomial over t; and the calibrated square-root mass is
// slope·(t − TOFCorrectionTime/1000 − intercept). BinToMz is a pure
// function: equal inputs always produce bit-identical output.
func (p Params) BinToMz(bin float64) float64 {
	t := bin * p.BinWidth / 1000

	t2 := t * t
	residual := t * (p.A2 + t2*(p.B2+t2*(p.C2+t2*(p.D2+t2*(p.E2+t2*p.F2)))))

	sqrtMz := p.Slope * (t - p.TOFCorrectionTime/1000 - p.Intercept)

	return sqrtMz*sqrtMz + residual
}

// MzToBin returns the bin in [0, maxBin) whose BinToMz value is closest to
// targetMz.
//
// The residual polynomial makes the forward function non-invertible in
// closed form, so the inverse is found by binary search over the monotonic
// forward conversion.
func (p Params) MzToBin(targetMz float64, maxBin int) int {
	if maxBin <= 1 {
		return 0
	}

	lo, hi := 0, maxBin-1
	if targetMz <= p.BinToMz(float64(lo)) {
		return lo
	}
	if targetMz >= p.BinToMz(float64(hi)) {
		return hi
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if p.BinToMz(float64(mid)) < targetMz {
			lo = mid
		} else {
			hi = mid
		}
	}

	if targetMz-p.BinToMz(float64(lo)) <= p.BinToMz(float64(hi))-targetMz {
		return lo
	}

	return hi
}
