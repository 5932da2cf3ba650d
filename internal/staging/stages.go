package staging

import "fmt"

// Stage 单个 30 秒 epoch 的睡眠分期标签
type Stage string

const (
	StageWake Stage = "W"
	StageN1   Stage = "N1"
	StageN2   Stage = "N2"
	StageN3   Stage = "N3"
	StageREM  Stage = "R"
)

// EpochSeconds 分期的时间粒度：固定 30 秒一个 epoch
const EpochSeconds = 30.0

// ValidStage 检查标签是否属于闭集
func ValidStage(s Stage) bool {
	switch s {
	case StageWake, StageN1, StageN2, StageN3, StageREM:
		return true
	}
	return false
}

// ValidateSequence 校验分期序列的每个标签
func ValidateSequence(seq []Stage) error {
	for i, s := range seq {
		if !ValidStage(s) {
			return fmt.Errorf("%w: %q at epoch %d", ErrInvalidStageLabel, string(s), i)
		}
	}
	return nil
}

// ParseSequence 将字符串标签序列转换为 Stage 序列并校验
func ParseSequence(labels []string) ([]Stage, error) {
	seq := make([]Stage, len(labels))
	for i, l := range labels {
		seq[i] = Stage(l)
	}
	if err := ValidateSequence(seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// SequenceStrings 将 Stage 序列转换为字符串序列（用于消息和报表）
func SequenceStrings(seq []Stage) []string {
	labels := make([]string, len(seq))
	for i, s := range seq {
		labels[i] = string(s)
	}
	return labels
}
