package param

import (
	"time"

	"github.com/uimfdata/uimf/calib"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/format"
)

// FrameParams is the decoded per-frame parameter record.
//
// Slope and intercept are tracked with explicit presence flags: a stored
// zero and an absent parameter are different things, and any m/z conversion
// must fail for frames where either is absent.
type FrameParams struct {
	FrameType        format.FrameType
	Scans            int
	Slope            float64
	Intercept        float64
	MassErrorA       float64
	MassErrorB       float64
	MassErrorC       float64
	MassErrorD       float64
	MassErrorE       float64
	MassErrorF       float64
	AverageTOFLength float64
	StartTime        float64 // minutes since acquisition start

	hasSlope     bool
	hasIntercept bool
}

// FrameParamsFromValues decodes a raw key/value record loaded from the store.
// Unknown keys are ignored; conversion failures surface as errors because a
// value of the wrong type means the file is corrupt, not merely incomplete.
func FrameParamsFromValues(values map[FrameKey]Value) (*FrameParams, error) {
	p := &FrameParams{}

	for key, v := range values {
		var err error
		switch key {
		case FrameKeyFrameType:
			var n int64
			if n, err = v.Int64(); err == nil {
				p.FrameType = format.FrameType(n)
			}
		case FrameKeyScans:
			var n int64
			if n, err = v.Int64(); err == nil {
				p.Scans = int(n)
			}
		case FrameKeyCalibrationSlope:
			if p.Slope, err = v.Float64(); err == nil {
				p.hasSlope = true
			}
		case FrameKeyCalibrationIntercept:
			if p.Intercept, err = v.Float64(); err == nil {
				p.hasIntercept = true
			}
		case FrameKeyMassErrorA:
			p.MassErrorA, err = v.Float64()
		case FrameKeyMassErrorB:
			p.MassErrorB, err = v.Float64()
		case FrameKeyMassErrorC:
			p.MassErrorC, err = v.Float64()
		case FrameKeyMassErrorD:
			p.MassErrorD, err = v.Float64()
		case FrameKeyMassErrorE:
			p.MassErrorE, err = v.Float64()
		case FrameKeyMassErrorF:
			p.MassErrorF, err = v.Float64()
		case FrameKeyAverageTOFLength:
			p.AverageTOFLength, err = v.Float64()
		case FrameKeyStartTime:
			p.StartTime, err = v.Float64()
		}
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Values encodes the record back into its raw key/value form for persisting.
func (p *FrameParams) Values() map[FrameKey]Value {
	values := map[FrameKey]Value{
		FrameKeyFrameType:        Int64Value(int64(p.FrameType)),
		FrameKeyScans:            Int64Value(int64(p.Scans)),
		FrameKeyMassErrorA:       Float64Value(p.MassErrorA),
		FrameKeyMassErrorB:       Float64Value(p.MassErrorB),
		FrameKeyMassErrorC:       Float64Value(p.MassErrorC),
		FrameKeyMassErrorD:       Float64Value(p.MassErrorD),
		FrameKeyMassErrorE:       Float64Value(p.MassErrorE),
		FrameKeyMassErrorF:       Float64Value(p.MassErrorF),
		FrameKeyAverageTOFLength: Float64Value(p.AverageTOFLength),
		FrameKeyStartTime:        Float64Value(p.StartTime),
	}
	if p.hasSlope {
		values[FrameKeyCalibrationSlope] = Float64Value(p.Slope)
	}
	if p.hasIntercept {
		values[FrameKeyCalibrationIntercept] = Float64Value(p.Intercept)
	}

	return values
}

// SetCalibration records slope and intercept, marking both present.
func (p *FrameParams) SetCalibration(slope, intercept float64) {
	p.Slope = slope
	p.Intercept = intercept
	p.hasSlope = true
	p.hasIntercept = true
}

// HasCalibration reports whether both slope and intercept are present.
func (p *FrameParams) HasCalibration() bool {
	return p.hasSlope && p.hasIntercept
}

// Calibration assembles the conversion constants for this frame, combining
// its calibration with the file's bin width and TOF correction time. It
// fails with errs.ErrMissingCalibration when slope or intercept is absent.
func (p *FrameParams) Calibration(g *GlobalParams) (calib.Params, error) {
	if !p.HasCalibration() {
		return calib.Params{}, errs.ErrMissingCalibration
	}

	return calib.Params{
		Slope:             p.Slope,
		Intercept:         p.Intercept,
		BinWidth:          g.BinWidth,
		TOFCorrectionTime: g.TOFCorrectionTime,
		A2:                p.MassErrorA,
		B2:                p.MassErrorB,
		C2:                p.MassErrorC,
		D2:                p.MassErrorD,
		E2:                p.MassErrorE,
		F2:                p.MassErrorF,
	}, nil
}

// SameCalibration reports whether two frames share identical conversion
// constants, letting chromatogram extraction reuse a resolved bin window
// across frames.
func (p *FrameParams) SameCalibration(o *FrameParams) bool {
	return p.hasSlope == o.hasSlope && p.hasIntercept == o.hasIntercept &&
		p.Slope == o.Slope && p.Intercept == o.Intercept &&
		p.MassErrorA == o.MassErrorA && p.MassErrorB == o.MassErrorB &&
		p.MassErrorC == o.MassErrorC && p.MassErrorD == o.MassErrorD &&
		p.MassErrorE == o.MassErrorE && p.MassErrorF == o.MassErrorF
}

// GlobalParams is the decoded file-level parameter record.
type GlobalParams struct {
	Bins              int
	BinWidth          float64 // ns
	TimeOffset        int
	TOFCorrectionTime float64
	NumFrames         int
	TOFIntensityType  format.IntensityWidth
	DateStarted       time.Time
}

// GlobalParamsFromValues decodes a raw key/value record loaded from the store.
func GlobalParamsFromValues(values map[GlobalKey]Value) (*GlobalParams, error) {
	g := &GlobalParams{TOFIntensityType: format.Width32}

	for key, v := range values {
		var err error
		switch key {
		case GlobalKeyBins:
			var n int64
			if n, err = v.Int64(); err == nil {
				g.Bins = int(n)
			}
		case GlobalKeyBinWidth:
			g.BinWidth, err = v.Float64()
		case GlobalKeyTimeOffset:
			var n int64
			if n, err = v.Int64(); err == nil {
				g.TimeOffset = int(n)
			}
		case GlobalKeyTOFCorrectionTime:
			g.TOFCorrectionTime, err = v.Float64()
		case GlobalKeyNumFrames:
			var n int64
			if n, err = v.Int64(); err == nil {
				g.NumFrames = int(n)
			}
		case GlobalKeyTOFIntensityType:
			g.TOFIntensityType = parseIntensityType(v.Text())
		case GlobalKeyDateStarted:
			g.DateStarted, err = v.Time()
		}
		if err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Values encodes the record back into its raw key/value form for persisting.
func (g *GlobalParams) Values() map[GlobalKey]Value {
	values := map[GlobalKey]Value{
		GlobalKeyBins:              Int64Value(int64(g.Bins)),
		GlobalKeyBinWidth:          Float64Value(g.BinWidth),
		GlobalKeyTimeOffset:        Int64Value(int64(g.TimeOffset)),
		GlobalKeyTOFCorrectionTime: Float64Value(g.TOFCorrectionTime),
		GlobalKeyNumFrames:         Int64Value(int64(g.NumFrames)),
		GlobalKeyTOFIntensityType:  StringValue(intensityTypeName(g.TOFIntensityType)),
	}
	if !g.DateStarted.IsZero() {
		values[GlobalKeyDateStarted] = TimeValue(g.DateStarted)
	}

	return values
}

// parseIntensityType maps the persisted TOFIntensityType name to a width.
// Files written before 16-bit support carry "ADC" or nothing; both mean
// 32-bit tokens.
func parseIntensityType(text string) format.IntensityWidth {
	if text == "TDC" || text == "Int16" {
		return format.Width16
	}

	return format.Width32
}

func intensityTypeName(w format.IntensityWidth) string {
	if w == format.Width16 {
		return "TDC"
	}

	return "ADC"
}
