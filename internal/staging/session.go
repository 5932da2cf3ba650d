package staging

import (
	"context"
	"fmt"

	"wisefido-eegstaging/internal/eeg"

	"go.uber.org/zap"
)

// Classifier 外部逐通道分期器（30 秒一个 epoch，按时间升序返回标签）
//
// view 是按会话参考方案重参考后的记录视图；eogChannel 可为空。
// 返回序列长度 = floor(记录秒数 / 30)。
type Classifier interface {
	Predict(ctx context.Context, view *eeg.Recording, eegChannel, eogChannel string) ([]Stage, error)
}

// Config 分期会话配置（构造后不可变）
type Config struct {
	EEGChannels []string // 参与分期的 EEG 通道
	EOGChannel  string   // 可选 EOG 通道（信号质量可靠时才配置）
	RefChannels []string // 参考通道集合（RefMode 为空时生效）
	RefMode     string   // "" / eeg.RefModeAverage / eeg.RefModeREST
	KeepN1      bool     // 是否保留 N1（见 Combine：线上行为当前忽略该标志）
}

// Session 一次记录的分期会话（聚合根）
//
// 持有记录、分期器和配置，缓存最近一次的共识序列和睡眠占比。
// 入睡点列表跨 Annotate 调用累积，不会自动清空（需要幂等时显式
// ResetOnsets）。会话内部状态不支持并发访问。
type Session struct {
	cfg        Config
	recording  *eeg.Recording
	classifier Classifier
	logger     *zap.Logger

	consensus  []Stage
	onsets     []SleepOnset
	percentage *float64
}

// NewSession 创建分期会话，配置错误在构造时立即检出
func NewSession(recording *eeg.Recording, classifier Classifier, cfg Config, logger *zap.Logger) (*Session, error) {
	if recording == nil {
		return nil, fmt.Errorf("%w: nil recording", ErrInvalidConfiguration)
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: nil classifier", ErrInvalidConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.EEGChannels) == 0 {
		return nil, fmt.Errorf("%w: no EEG channels configured", ErrInvalidConfiguration)
	}
	for _, name := range cfg.EEGChannels {
		if name == "" {
			return nil, fmt.Errorf("%w: empty EEG channel name", ErrInvalidConfiguration)
		}
	}

	switch cfg.RefMode {
	case "":
		if len(cfg.RefChannels) == 0 {
			return nil, fmt.Errorf("%w: no reference channels configured", ErrInvalidConfiguration)
		}
	case eeg.RefModeAverage, eeg.RefModeREST:
		// 特殊参考模式不需要参考通道
	default:
		return nil, fmt.Errorf("%w: unknown reference mode %q", ErrInvalidConfiguration, cfg.RefMode)
	}

	// 所有配置的通道必须存在于记录中
	required := make([]string, 0, len(cfg.EEGChannels)+len(cfg.RefChannels)+1)
	required = append(required, cfg.EEGChannels...)
	if cfg.RefMode == "" {
		required = append(required, cfg.RefChannels...)
	}
	if cfg.EOGChannel != "" {
		required = append(required, cfg.EOGChannel)
	}
	for _, name := range required {
		if !recording.HasChannel(name) {
			return nil, fmt.Errorf("%w: %s", eeg.ErrChannelNotFound, name)
		}
	}

	return &Session{
		cfg:        cfg,
		recording:  recording,
		classifier: classifier,
		logger:     logger,
	}, nil
}

// Recording 返回会话持有的记录
func (s *Session) Recording() *eeg.Recording {
	return s.recording
}

// Consensus 返回最近一次 Predict 的共识序列（未执行过 Predict 时为 nil）
func (s *Session) Consensus() []Stage {
	if s.consensus == nil {
		return nil
	}
	out := make([]Stage, len(s.consensus))
	copy(out, s.consensus)
	return out
}

// Predict 对每个配置的 EEG 通道调用分期器并合并为共识序列
//
// 参考方案按 DecideReference 决定：半球拆分时每个 EEG 通道用与其
// 同侧的参考视图预测，统一方案下全部通道共用一个视图。
// 结果按配置的通道顺序堆叠成矩阵后交给 Combine。重复调用覆盖缓存。
func (s *Session) Predict(ctx context.Context) ([]Stage, error) {
	views, err := s.buildViews()
	if err != nil {
		return nil, err
	}

	rows := make([][]Stage, len(s.cfg.EEGChannels))
	for i, name := range s.cfg.EEGChannels {
		view, err := views.forChannel(name)
		if err != nil {
			return nil, err
		}

		row, err := s.classifier.Predict(ctx, view, name, s.cfg.EOGChannel)
		if err != nil {
			return nil, fmt.Errorf("failed to predict channel %s: %w", name, err)
		}
		rows[i] = row
	}

	consensus, err := Combine(rows, s.cfg.KeepN1)
	if err != nil {
		return nil, err
	}

	s.consensus = consensus
	s.percentage = nil

	s.logger.Info("Sleep staging prediction completed",
		zap.String("recording_id", s.recording.ID),
		zap.Int("channels", len(s.cfg.EEGChannels)),
		zap.Int("epochs", len(consensus)),
	)

	return s.Consensus(), nil
}

// referenceViews 预测用的重参考视图集合
type referenceViews struct {
	scheme  eeg.ReferenceScheme
	unified *eeg.Recording
	left    *eeg.Recording
	right   *eeg.Recording
}

// forChannel 返回指定 EEG 通道应使用的视图（半球拆分时取同侧视图）
func (v *referenceViews) forChannel(name string) (*eeg.Recording, error) {
	if v.scheme == eeg.ReferenceUnified {
		return v.unified, nil
	}

	hemisphere, err := eeg.ChannelHemisphere(name)
	if err != nil {
		return nil, err
	}
	if hemisphere == eeg.HemisphereRight {
		return v.right, nil
	}
	return v.left, nil
}

func (s *Session) buildViews() (*referenceViews, error) {
	scheme := eeg.ReferenceUnified
	if s.cfg.RefMode == "" {
		var err error
		scheme, err = eeg.DecideReference(s.cfg.RefChannels)
		if err != nil {
			return nil, err
		}
	}

	if scheme == eeg.ReferenceUnified {
		if s.cfg.RefMode == eeg.RefModeREST {
			s.logger.Warn("REST reference requires a head model, falling back to average reference",
				zap.String("recording_id", s.recording.ID),
			)
		}
		view := s.recording.Copy()
		if err := view.SetReference(s.cfg.RefMode, s.cfg.RefChannels); err != nil {
			return nil, err
		}
		return &referenceViews{scheme: scheme, unified: view}, nil
	}

	// 半球拆分：每侧只用同侧的那一个参考通道
	var leftRef, rightRef string
	for _, name := range s.cfg.RefChannels {
		hemisphere, err := eeg.ChannelHemisphere(name)
		if err != nil {
			return nil, err
		}
		if hemisphere == eeg.HemisphereRight {
			rightRef = name
		} else {
			leftRef = name
		}
	}

	leftView := s.recording.Copy()
	if err := leftView.SetReference("", []string{leftRef}); err != nil {
		return nil, err
	}
	rightView := s.recording.Copy()
	if err := rightView.SetReference("", []string{rightRef}); err != nil {
		return nil, err
	}

	return &referenceViews{scheme: scheme, left: leftView, right: rightView}, nil
}

// sequence 取调用方提供的序列（校验标签闭集）或缓存的共识序列
func (s *Session) sequence(override []Stage) ([]Stage, error) {
	if override != nil {
		if err := ValidateSequence(override); err != nil {
			return nil, err
		}
		seq := make([]Stage, len(override))
		copy(seq, override)
		return seq, nil
	}
	if s.consensus == nil {
		return nil, ErrMissingPrediction
	}
	return s.Consensus(), nil
}

// Annotate 把睡眠时段作为 "bad" 标注写入记录
//
// 序列中每个非清醒 epoch 的入睡点追加到会话的累积列表，再按整个累积
// 列表生成标注事件并与记录既有标注合并（不替换）。重复调用会产生
// 重复的入睡点记录，需要幂等时先 ResetOnsets。
func (s *Session) Annotate(override []Stage, specifyStage bool) (*eeg.Recording, error) {
	seq, err := s.sequence(override)
	if err != nil {
		return nil, err
	}

	s.onsets = append(s.onsets, CollectOnsets(seq)...)

	events := annotationsFromOnsets(s.onsets, specifyStage)
	merged := append(s.recording.Annotations(), events...)
	s.recording.SetAnnotations(merged)

	s.logger.Debug("Annotated sleep phases",
		zap.String("recording_id", s.recording.ID),
		zap.Int("events", len(events)),
		zap.Int("total_annotations", len(merged)),
	)

	return s.recording, nil
}

// Onsets 返回累积的入睡点列表
func (s *Session) Onsets() []SleepOnset {
	out := make([]SleepOnset, len(s.onsets))
	copy(out, s.onsets)
	return out
}

// ResetOnsets 清空累积的入睡点列表
func (s *Session) ResetOnsets() {
	s.onsets = nil
}

// SleepPercentage 计算睡眠时间占比并缓存结果
func (s *Session) SleepPercentage(override []Stage) (float64, error) {
	seq, err := s.sequence(override)
	if err != nil {
		return 0, err
	}

	pct, err := SleepPercentage(seq, s.recording.TotalSamples(), s.recording.SamplingRate)
	if err != nil {
		return 0, err
	}

	s.percentage = &pct
	return pct, nil
}

// LastPercentage 返回最近一次计算的睡眠占比（未计算过时为 nil）
func (s *Session) LastPercentage() *float64 {
	if s.percentage == nil {
		return nil
	}
	v := *s.percentage
	return &v
}
