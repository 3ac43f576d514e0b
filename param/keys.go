package param

// FrameKey enumerates the known per-frame parameter IDs. The numeric values
// are the ParamIDs persisted in the Frame_Params table and are stable across
// schema generations; never renumber them.
type FrameKey int

const (
	FrameKeyFrameType            FrameKey = 1
	FrameKeyScans                FrameKey = 2
	FrameKeyCalibrationSlope     FrameKey = 3
	FrameKeyCalibrationIntercept FrameKey = 4
	FrameKeyMassErrorA           FrameKey = 5
	FrameKeyMassErrorB           FrameKey = 6
	FrameKeyMassErrorC           FrameKey = 7
	FrameKeyMassErrorD           FrameKey = 8
	FrameKeyMassErrorE           FrameKey = 9
	FrameKeyMassErrorF           FrameKey = 10
	FrameKeyAverageTOFLength     FrameKey = 11
	FrameKeyStartTime            FrameKey = 12
)

// GlobalKey enumerates the known file-level parameter IDs persisted in the
// Global_Params table.
type GlobalKey int

const (
	GlobalKeyBins              GlobalKey = 1
	GlobalKeyBinWidth          GlobalKey = 2
	GlobalKeyTimeOffset        GlobalKey = 3
	GlobalKeyTOFCorrectionTime GlobalKey = 4
	GlobalKeyNumFrames         GlobalKey = 5
	GlobalKeyTOFIntensityType  GlobalKey = 6
	GlobalKeyDateStarted       GlobalKey = 7
)

type keyInfo struct {
	name string
	kind Kind
}

var frameKeyTable = map[FrameKey]keyInfo{
	FrameKeyFrameType:            {"FrameType", KindInt},
	FrameKeyScans:                {"Scans", KindInt},
	FrameKeyCalibrationSlope:     {"CalibrationSlope", KindFloat},
	FrameKeyCalibrationIntercept: {"CalibrationIntercept", KindFloat},
	FrameKeyMassErrorA:           {"MassErrorCoefficientA2", KindFloat},
	FrameKeyMassErrorB:           {"MassErrorCoefficientB2", KindFloat},
	FrameKeyMassErrorC:           {"MassErrorCoefficientC2", KindFloat},
	FrameKeyMassErrorD:           {"MassErrorCoefficientD2", KindFloat},
	FrameKeyMassErrorE:           {"MassErrorCoefficientE2", KindFloat},
	FrameKeyMassErrorF:           {"MassErrorCoefficientF2", KindFloat},
	FrameKeyAverageTOFLength:     {"AverageTOFLength", KindFloat},
	FrameKeyStartTime:            {"StartTime", KindFloat},
}

var globalKeyTable = map[GlobalKey]keyInfo{
	GlobalKeyBins:              {"Bins", KindInt},
	GlobalKeyBinWidth:          {"BinWidth", KindFloat},
	GlobalKeyTimeOffset:        {"TimeOffset", KindInt},
	GlobalKeyTOFCorrectionTime: {"TOFCorrectionTime", KindFloat},
	GlobalKeyNumFrames:         {"NumFrames", KindInt},
	GlobalKeyTOFIntensityType:  {"TOFIntensityType", KindString},
	GlobalKeyDateStarted:       {"DateStarted", KindTime},
}

// Name returns the semantic name recorded in the parameter-ID resolution
// table, or "" for unknown keys.
func (k FrameKey) Name() string { return frameKeyTable[k].name }

// Kind returns the declared value kind for the key, or 0 for unknown keys.
func (k FrameKey) Kind() Kind { return frameKeyTable[k].kind }

// Known reports whether the key is in the resolution table. Unknown ParamIDs
// in a file are preserved but not interpreted.
func (k FrameKey) Known() bool {
	_, ok := frameKeyTable[k]
	return ok
}

// Name returns the semantic name recorded in the parameter-ID resolution
// table, or "" for unknown keys.
func (k GlobalKey) Name() string { return globalKeyTable[k].name }

// Kind returns the declared value kind for the key, or 0 for unknown keys.
func (k GlobalKey) Kind() Kind { return globalKeyTable[k].kind }

// Known reports whether the key is in the resolution table.
func (k GlobalKey) Known() bool {
	_, ok := globalKeyTable[k]
	return ok
}

// FrameKeys returns every known frame key, for writers that persist the
// resolution table.
func FrameKeys() []FrameKey {
	keys := make([]FrameKey, 0, len(frameKeyTable))
	for k := range frameKeyTable {
		keys = append(keys, k)
	}

	return keys
}

// GlobalKeys returns every known global key.
func GlobalKeys() []GlobalKey {
	keys := make([]GlobalKey, 0, len(globalKeyTable))
	for k := range globalKeyTable {
		keys = append(keys, k)
	}

	return keys
}
