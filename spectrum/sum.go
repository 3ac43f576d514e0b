package spectrum

import (
	"context"
	"math"
)

// OutputValue is the set of numeric widths the summation API can emit.
type OutputValue interface {
	~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// SumScans sums every scan in range into a dense bin-indexed array of the
// requested numeric width. All widths share one accumulation core over
// int64; integer outputs saturate at the type's maximum rather than wrap.
func SumScans[T OutputValue](ctx context.Context, e *Engine, r Range) ([]T, int, error) {
	acc, nonZero, err := e.GetSpectrumAsBins(ctx, r)
	if err != nil {
		return nil, 0, err
	}

	out := make([]T, len(acc))
	for i, v := range acc {
		out[i] = saturate[T](v)
	}

	return out, nonZero, nil
}

func saturate[T OutputValue](v int64) T {
	// Ceilings go through int64 variables: a constant conversion would
	// have to be representable in every type of T's set.
	switch any(T(0)).(type) {
	case int16:
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
	case int32:
		if v > math.MaxInt32 {
			v = math.MaxInt32
		}
	}

	return T(v)
}

// SumScansInt16 sums scans into 16-bit intensities, saturating at 32767.
func (e *Engine) SumScansInt16(ctx context.Context, r Range) ([]int16, int, error) {
	return SumScans[int16](ctx, e, r)
}

// SumScansInt32 sums scans into 32-bit intensities.
func (e *Engine) SumScansInt32(ctx context.Context, r Range) ([]int32, int, error) {
	return SumScans[int32](ctx, e, r)
}

// SumScansFloat32 sums scans into single-precision intensities.
func (e *Engine) SumScansFloat32(ctx context.Context, r Range) ([]float32, int, error) {
	return SumScans[float32](ctx, e, r)
}

// SumScansFloat64 sums scans into double-precision intensities.
func (e *Engine) SumScansFloat64(ctx context.Context, r Range) ([]float64, int, error) {
	return SumScans[float64](ctx, e, r)
}
