package staging

import (
	"fmt"

	"wisefido-eegstaging/internal/eeg"
)

// 睡眠时段标注描述前缀（MNE 约定：以 "bad" 开头的标注段会被下游分析剔除）
const annotationBad = "bad"

// SleepOnset 一次非清醒 epoch 的入睡点
type SleepOnset struct {
	OnsetSeconds float64
	Stage        Stage
}

// CollectOnsets 提取序列中所有非清醒 epoch 的入睡点
func CollectOnsets(seq []Stage) []SleepOnset {
	var onsets []SleepOnset
	for i, s := range seq {
		if s != StageWake {
			onsets = append(onsets, SleepOnset{
				OnsetSeconds: float64(i) * EpochSeconds,
				Stage:        s,
			})
		}
	}
	return onsets
}

// BuildAnnotations 将分期序列转换为标注事件（无状态，每次调用返回全新结果）
//
// 每个非清醒 epoch 生成一条事件：onset = i*30，duration = 30，
// specifyStage 为 true 时描述带上分期标签（如 "bad: N2"）。
// 与既有标注的合并由调用方完成。
func BuildAnnotations(seq []Stage, specifyStage bool) []eeg.Annotation {
	return annotationsFromOnsets(CollectOnsets(seq), specifyStage)
}

func annotationsFromOnsets(onsets []SleepOnset, specifyStage bool) []eeg.Annotation {
	events := make([]eeg.Annotation, 0, len(onsets))
	for _, o := range onsets {
		description := annotationBad
		if specifyStage {
			description = fmt.Sprintf("%s: %s", annotationBad, o.Stage)
		}
		events = append(events, eeg.Annotation{
			Onset:       o.OnsetSeconds,
			Duration:    EpochSeconds,
			Description: description,
		})
	}
	return events
}
