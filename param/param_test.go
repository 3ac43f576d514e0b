package param

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uimfdata/uimf/format"
)

func TestValue_Conversions(t *testing.T) {
	v, err := StringValue("42").Int64()
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	f, err := Int64Value(7).Float64()
	require.NoError(t, err)
	require.Equal(t, 7.0, f)

	_, err = StringValue("not a number").Int64()
	require.Error(t, err)

	_, err = Float64Value(1.5).Int64()
	require.Error(t, err)

	i, err := Float64Value(3).Int64()
	require.NoError(t, err)
	require.Equal(t, int64(3), i)
}

func TestValue_TextRoundTrip(t *testing.T) {
	started := time.Date(2019, 6, 14, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		kind Kind
		val  Value
	}{
		{KindInt, Int64Value(148000)},
		{KindFloat, Float64Value(0.35417)},
		{KindString, StringValue("ADC")},
		{KindTime, TimeValue(started)},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			back, err := Parse(tc.kind, tc.val.Text())
			require.NoError(t, err)
			require.Equal(t, tc.val, back)
		})
	}
}

func TestKeyTables(t *testing.T) {
	require.Equal(t, "CalibrationSlope", FrameKeyCalibrationSlope.Name())
	require.Equal(t, KindFloat, FrameKeyCalibrationSlope.Kind())
	require.True(t, FrameKeyScans.Known())
	require.False(t, FrameKey(9999).Known())

	require.Equal(t, "Bins", GlobalKeyBins.Name())
	require.Equal(t, KindInt, GlobalKeyBins.Kind())
	require.Len(t, FrameKeys(), 12)
	require.Len(t, GlobalKeys(), 7)
}

func TestFrameParams_RoundTrip(t *testing.T) {
	p := &FrameParams{
		FrameType:        format.FrameTypeMS1,
		Scans:            360,
		AverageTOFLength: 162555.2,
		MassErrorB:       -2e-9,
	}
	p.SetCalibration(0.35, -0.06)

	back, err := FrameParamsFromValues(p.Values())
	require.NoError(t, err)
	require.Equal(t, p, back)
	require.True(t, back.HasCalibration())
}

func TestFrameParams_MissingCalibration(t *testing.T) {
	p, err := FrameParamsFromValues(map[FrameKey]Value{
		FrameKeyScans: Int64Value(360),
	})
	require.NoError(t, err)
	require.False(t, p.HasCalibration())

	_, err = p.Calibration(&GlobalParams{BinWidth: 1.6})
	require.Error(t, err)

	// Intercept alone is not enough: a stored zero and an absent value
	// are different things.
	p2, err := FrameParamsFromValues(map[FrameKey]Value{
		FrameKeyCalibrationIntercept: Float64Value(0),
	})
	require.NoError(t, err)
	require.False(t, p2.HasCalibration())
}

func TestFrameParams_CorruptValue(t *testing.T) {
	_, err := FrameParamsFromValues(map[FrameKey]Value{
		FrameKeyCalibrationSlope: StringValue("garbage"),
	})
	require.Error(t, err)
}

func TestFrameParams_SameCalibration(t *testing.T) {
	a := &FrameParams{}
	a.SetCalibration(0.35, -0.06)
	b := &FrameParams{}
	b.SetCalibration(0.35, -0.06)
	require.True(t, a.SameCalibration(b))

	b.SetCalibration(0.36, -0.06)
	require.False(t, a.SameCalibration(b))
}

func TestGlobalParams_RoundTrip(t *testing.T) {
	g := &GlobalParams{
		Bins:              148000,
		BinWidth:          1.6,
		TimeOffset:        10000,
		TOFCorrectionTime: 29.6,
		NumFrames:         25,
		TOFIntensityType:  format.Width16,
		DateStarted:       time.Date(2019, 6, 14, 9, 30, 0, 0, time.UTC),
	}

	back, err := GlobalParamsFromValues(g.Values())
	require.NoError(t, err)
	require.Equal(t, g, back)
}

func TestGlobalParams_DefaultWidth(t *testing.T) {
	g, err := GlobalParamsFromValues(map[GlobalKey]Value{
		GlobalKeyBins: Int64Value(1000),
	})
	require.NoError(t, err)
	require.Equal(t, format.Width32, g.TOFIntensityType)
}
