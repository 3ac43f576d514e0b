package spectrum

import (
	"context"

	"github.com/uimfdata/uimf/calib"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/storage"
)

// binWindow is the inclusive bin range a target m/z resolves to in one
// frame's calibration.
type binWindow struct {
	low  int
	high int
}

func resolveWindow(cal calib.Params, targetMz, tolerance float64, maxBin int) binWindow {
	if tolerance <= 0 {
		bin := cal.MzToBin(targetMz, maxBin)
		return binWindow{low: bin, high: bin}
	}

	return binWindow{
		low:  cal.MzToBin(targetMz-tolerance, maxBin),
		high: cal.MzToBin(targetMz+tolerance, maxBin),
	}
}

// extractProfile streams every scan in range and reports the summed
// intensity inside the target m/z window for each. The window is resolved
// once per calibration: consecutive frames with identical constants reuse
// the previous frame's bins instead of re-running the inversion.
func (e *Engine) extractProfile(ctx context.Context, r Range, targetMz, tolerance float64, add func(frameNum, scanNum int, intensity int64)) error {
	r = r.normalize()
	if r.empty() {
		return nil
	}

	allowed, err := e.allowedFrames(ctx, r, true)
	if err != nil {
		return err
	}
	if len(allowed) == 0 {
		return nil
	}

	maxBin := e.globals.Bins - 1
	var lastFrame *param.FrameParams
	var win binWindow

	return e.scans.ScansInRange(ctx, r.StartFrame, r.EndFrame, r.StartScan, r.EndScan, func(rec *storage.ScanRecord) error {
		p := allowed[rec.FrameNum]
		if p == nil || len(rec.Intensities) == 0 {
			return nil
		}

		if lastFrame == nil || !p.SameCalibration(lastFrame) {
			cal, err := p.Calibration(e.globals)
			if err != nil {
				return err
			}
			win = resolveWindow(cal, targetMz, tolerance, maxBin)
			lastFrame = p
		}

		pairs, err := e.codec.DecodePairs(rec.Intensities, int64(e.globals.Bins))
		if err != nil {
			return err
		}

		var total int64
		for _, pair := range pairs {
			if pair.Index < int64(win.low) {
				continue
			}
			if pair.Index > int64(win.high) {
				break
			}
			total += int64(pair.Value)
		}
		if total != 0 {
			add(rec.FrameNum, rec.ScanNum, total)
		}

		return nil
	})
}

// Get3DElutionProfile extracts the intensity at the target m/z for every
// (frame, scan) in range, with no summation: the result is indexed
// [frame-StartFrame][scan-StartScan].
func (e *Engine) Get3DElutionProfile(ctx context.Context, r Range, targetMz, tolerance float64) ([][]int64, error) {
	r = r.normalize()
	if r.empty() {
		return nil, nil
	}

	profile := make([][]int64, r.EndFrame-r.StartFrame+1)
	for i := range profile {
		profile[i] = make([]int64, r.EndScan-r.StartScan+1)
	}

	err := e.extractProfile(ctx, r, targetMz, tolerance, func(frameNum, scanNum int, intensity int64) {
		profile[frameNum-r.StartFrame][scanNum-r.StartScan] = intensity
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// GetDriftTimeProfile extracts the intensity at the target m/z per drift
// scan, summed across the frames in range: the result is indexed
// [scan-StartScan].
func (e *Engine) GetDriftTimeProfile(ctx context.Context, r Range, targetMz, tolerance float64) ([]int64, error) {
	r = r.normalize()
	if r.empty() {
		return nil, nil
	}

	profile := make([]int64, r.EndScan-r.StartScan+1)
	err := e.extractProfile(ctx, r, targetMz, tolerance, func(_, scanNum int, intensity int64) {
		profile[scanNum-r.StartScan] += intensity
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// GetLCProfile extracts the intensity at the target m/z per LC frame,
// summed across the scans in range: the result is indexed
// [frame-StartFrame].
func (e *Engine) GetLCProfile(ctx context.Context, r Range, targetMz, tolerance float64) ([]int64, error) {
	r = r.normalize()
	if r.empty() {
		return nil, nil
	}

	profile := make([]int64, r.EndFrame-r.StartFrame+1)
	err := e.extractProfile(ctx, r, targetMz, tolerance, func(frameNum, _ int, intensity int64) {
		profile[frameNum-r.StartFrame] += intensity
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}
