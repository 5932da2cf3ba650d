package staging

import "errors"

var (
	// ErrInvalidConfiguration 会话配置不合法（EEG 通道集为空、参考集缺失等）
	ErrInvalidConfiguration = errors.New("invalid staging configuration")
	// ErrMissingPrediction 未执行 Predict 且未提供分期序列
	ErrMissingPrediction = errors.New("no sleep stages available: call Predict first or supply a sequence")
	// ErrInvalidStageLabel 分期序列包含闭集 {W, N1, N2, N3, R} 之外的值
	ErrInvalidStageLabel = errors.New("sleep stage outside [W N1 N2 N3 R]")
)
