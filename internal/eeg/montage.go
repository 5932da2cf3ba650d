package eeg

import (
	"fmt"
	"regexp"
	"strconv"
)

// Hemisphere 电极所属半球
type Hemisphere int

const (
	HemisphereLeft Hemisphere = iota
	HemisphereRight
)

// String 返回半球名称
func (h Hemisphere) String() string {
	if h == HemisphereRight {
		return "right"
	}
	return "left"
}

// 10-20 系统通道名中的电极编号，如 "C4" -> 4, "TP10" -> 10
var channelNumber = regexp.MustCompile("[0-9]+")

// ChannelHemisphere 根据 10-20 系统命名判断通道所属半球
//
// 取通道名中第一串数字：偶数为右半球，奇数为左半球。
// 通道名不含数字（如中线电极 "Cz"）时返回 ErrInvalidChannelName。
func ChannelHemisphere(name string) (Hemisphere, error) {
	match := channelNumber.FindString(name)
	if match == "" {
		return 0, fmt.Errorf("%w: channel %q should belong to one of the 2 hemispheres according to the 10-20 system", ErrInvalidChannelName, name)
	}

	num, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: channel %q", ErrInvalidChannelName, name)
	}

	if num%2 == 0 {
		return HemisphereRight, nil
	}
	return HemisphereLeft, nil
}
