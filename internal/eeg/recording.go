package eeg

import (
	"fmt"
)

// 通道类型
const (
	KindEEG = "eeg"
	KindEOG = "eog"
	KindRef = "ref"
)

// Channel 记录中的一个通道
type Channel struct {
	Name    string
	Kind    string // eeg / eog / ref
	Samples []float64
}

// Annotation 记录上的一条标注事件
type Annotation struct {
	Onset       float64 `json:"onset"`       // 起始时间（秒）
	Duration    float64 `json:"duration"`    // 持续时间（秒）
	Description string  `json:"description"` // 描述，如 "bad" 或 "bad: N2"
}

// Recording 内存中的多通道脑电记录
//
// 所有通道采样点数相同，采样率固定。标注集合可整体读取和替换，
// 追加语义（保留既有标注）由调用方负责。
type Recording struct {
	ID           string
	Name         string
	SamplingRate float64
	Channels     []Channel

	annotations []Annotation
}

// NewRecording 创建记录，校验采样率和各通道长度一致
func NewRecording(id, name string, samplingRate float64, channels []Channel) (*Recording, error) {
	if samplingRate <= 0 {
		return nil, fmt.Errorf("invalid sampling rate: %f", samplingRate)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("recording %s has no channels", id)
	}
	n := len(channels[0].Samples)
	for _, ch := range channels {
		if len(ch.Samples) != n {
			return nil, fmt.Errorf("channel %s has %d samples, expected %d", ch.Name, len(ch.Samples), n)
		}
	}

	return &Recording{
		ID:           id,
		Name:         name,
		SamplingRate: samplingRate,
		Channels:     channels,
	}, nil
}

// Channel 按名称查找通道
func (r *Recording) Channel(name string) (*Channel, error) {
	for i := range r.Channels {
		if r.Channels[i].Name == name {
			return &r.Channels[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, name)
}

// HasChannel 检查通道是否存在
func (r *Recording) HasChannel(name string) bool {
	_, err := r.Channel(name)
	return err == nil
}

// ChannelNames 返回通道名列表（按记录顺序）
func (r *Recording) ChannelNames() []string {
	names := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		names[i] = ch.Name
	}
	return names
}

// TotalSamples 每通道采样点数
func (r *Recording) TotalSamples() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0].Samples)
}

// Duration 记录总时长（秒）
func (r *Recording) Duration() float64 {
	return float64(r.TotalSamples()) / r.SamplingRate
}

// Copy 深拷贝记录（重参考产生视图时使用，不改动原始数据）
func (r *Recording) Copy() *Recording {
	channels := make([]Channel, len(r.Channels))
	for i, ch := range r.Channels {
		samples := make([]float64, len(ch.Samples))
		copy(samples, ch.Samples)
		channels[i] = Channel{Name: ch.Name, Kind: ch.Kind, Samples: samples}
	}

	annotations := make([]Annotation, len(r.annotations))
	copy(annotations, r.annotations)

	return &Recording{
		ID:           r.ID,
		Name:         r.Name,
		SamplingRate: r.SamplingRate,
		Channels:     channels,
		annotations:  annotations,
	}
}

// SetReference 对所有 EEG 通道重参考
//
// mode 为 RefModeAverage / RefModeREST 时参考信号取全部 EEG 通道的均值
// （REST 需要头模型，这里退化为平均参考，由调用方记录警告）；
// 否则参考信号取 refChannels 各通道的均值。逐采样点从 EEG 通道中减去参考信号。
func (r *Recording) SetReference(mode string, refChannels []string) error {
	n := r.TotalSamples()
	ref := make([]float64, n)

	switch mode {
	case RefModeAverage, RefModeREST:
		count := 0
		for _, ch := range r.Channels {
			if ch.Kind != KindEEG {
				continue
			}
			for i, v := range ch.Samples {
				ref[i] += v
			}
			count++
		}
		if count == 0 {
			return fmt.Errorf("recording %s has no EEG channels to average", r.ID)
		}
		for i := range ref {
			ref[i] /= float64(count)
		}
	default:
		if len(refChannels) == 0 {
			return fmt.Errorf("no reference channels given for recording %s", r.ID)
		}
		for _, name := range refChannels {
			ch, err := r.Channel(name)
			if err != nil {
				return err
			}
			for i, v := range ch.Samples {
				ref[i] += v
			}
		}
		for i := range ref {
			ref[i] /= float64(len(refChannels))
		}
	}

	for ci := range r.Channels {
		if r.Channels[ci].Kind != KindEEG {
			continue
		}
		for i := range r.Channels[ci].Samples {
			r.Channels[ci].Samples[i] -= ref[i]
		}
	}

	return nil
}

// Annotations 返回当前标注集合的副本
func (r *Recording) Annotations() []Annotation {
	annotations := make([]Annotation, len(r.annotations))
	copy(annotations, r.annotations)
	return annotations
}

// SetAnnotations 整体替换标注集合
func (r *Recording) SetAnnotations(annotations []Annotation) {
	r.annotations = make([]Annotation, len(annotations))
	copy(r.annotations, annotations)
}
