package staging

import (
	"fmt"
	"math"
)

// SleepPercentage 计算记录中处于睡眠状态的时间占比（0~100）
//
// 每个非清醒 epoch 计 1 个单位。末尾 epoch 非清醒且序列长度超过记录真实
// 时长所含的整 epoch 数时，该 epoch 是截断的，按 (时长 mod 30)/30 计
// 不足一个的单位。时长用记录的真实采样率换算（totalSamples/samplingRate），
// 不使用任何硬编码采样率。
func SleepPercentage(seq []Stage, totalSamples int, samplingRate float64) (float64, error) {
	if len(seq) == 0 {
		return 0, fmt.Errorf("%w: empty stage sequence", ErrInvalidConfiguration)
	}
	if samplingRate <= 0 {
		return 0, fmt.Errorf("%w: invalid sampling rate %f", ErrInvalidConfiguration, samplingRate)
	}

	duration := float64(totalSamples) / samplingRate

	units := 0.0
	last := len(seq) - 1
	for i, s := range seq {
		if i == last || s == StageWake {
			continue
		}
		units++
	}

	if seq[last] != StageWake {
		wholeEpochs := math.Floor(duration / EpochSeconds)
		if float64(len(seq)) > wholeEpochs {
			units += math.Mod(duration, EpochSeconds) / EpochSeconds
		} else {
			units++
		}
	}

	return units / float64(len(seq)) * 100, nil
}
