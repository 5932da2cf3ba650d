package eeg

// ReferenceScheme 重参考方案
type ReferenceScheme int

const (
	// ReferenceUnified 全部 EEG 通道使用同一个重参考视图
	ReferenceUnified ReferenceScheme = iota
	// ReferenceHemisphereSplit 左右半球各用同侧参考电极的重参考视图
	ReferenceHemisphereSplit
)

// 特殊参考模式（对应 MNE 的 set_eeg_reference 取值）
const (
	RefModeAverage = "average"
	RefModeREST    = "REST"
)

// DecideReference 根据参考通道集合选择重参考方案
//
// 恰好两个参考通道且分属左右半球（如 M1/M2 双乳突）时按半球拆分，
// 其余情况（单参考、同侧、更多参考通道）统一重参考。
func DecideReference(refChannels []string) (ReferenceScheme, error) {
	if len(refChannels) != 2 {
		return ReferenceUnified, nil
	}

	first, err := ChannelHemisphere(refChannels[0])
	if err != nil {
		return ReferenceUnified, err
	}
	second, err := ChannelHemisphere(refChannels[1])
	if err != nil {
		return ReferenceUnified, err
	}

	if first != second {
		return ReferenceHemisphereSplit, nil
	}
	return ReferenceUnified, nil
}
