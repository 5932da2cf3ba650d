package models

// StagingRequest MQTT 分期任务消息（eeg/staging/request）
type StagingRequest struct {
	RequestID    string   `json:"requestId"`     // 为空时由服务生成
	RecordingID  string   `json:"recordingId"`   // 待分期的记录
	EEGChannels  []string `json:"eegChannels"`   // 参与分期的 EEG 通道
	EOGChannel   string   `json:"eogChannel,omitempty"`
	RefChannels  []string `json:"refChannels,omitempty"` // 为空时用服务默认参考集
	RefMode      string   `json:"refMode,omitempty"`     // "" / "average" / "REST"
	KeepN1       bool     `json:"keepN1"`
	SpecifyStage bool     `json:"specifyStage"` // 标注描述是否带分期标签
}

// StagingResult 分期任务结果（Redis 缓存 / 结果流 / MQTT 回执）
type StagingResult struct {
	RequestID       string   `json:"requestId"`
	RecordingID     string   `json:"recordingId"`
	RecordingName   string   `json:"recordingName"`
	Stages          []string `json:"stages"` // 共识分期序列，每 epoch 一个标签
	EpochCount      int      `json:"epochCount"`
	SleepPercentage float64  `json:"sleepPercentage"`
	AnnotationCount int      `json:"annotationCount"` // 合并后记录上的标注总数
	Timestamp       int64    `json:"timestamp"`
}

// StagingStatus 单个请求的 MQTT 回执（eeg/staging/result/<requestId>）
type StagingStatus struct {
	RequestID   string `json:"requestId"`
	RecordingID string `json:"recordingId"`
	Status      string `json:"status"` // "completed" / "failed"
	Error       string `json:"error,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}
