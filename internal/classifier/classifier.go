package classifier

import (
	"context"
	"fmt"
	"time"

	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/eeg"
	"wisefido-eegstaging/internal/staging"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// predictRequest 分期推理服务请求
type predictRequest struct {
	RecordingID  string    `json:"recordingId"`
	SamplingRate float64   `json:"samplingRate"`
	EEGName      string    `json:"eegName"`
	EOGName      string    `json:"eogName,omitempty"`
	EEGSamples   []float64 `json:"eegSamples"`
	EOGSamples   []float64 `json:"eogSamples,omitempty"`
}

// predictResponse 分期推理服务响应
type predictResponse struct {
	Status int      `json:"status"` // 0 成功
	Msg    string   `json:"msg"`
	Stages []string `json:"stages"`
}

// HTTPClassifier 分期推理服务客户端
//
// 推理服务对单个重参考后的通道做 30 秒 epoch 分期，
// 每次请求携带采样率和该通道（以及可选 EOG 通道）的样本。
type HTTPClassifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPClassifier 创建分期推理服务客户端
func NewHTTPClassifier(cfg *config.ClassifierConfig, logger *zap.Logger) *HTTPClassifier {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second). // 整夜记录的推理可能较慢
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPClassifier{
		httpClient: client,
		logger:     logger,
	}
}

// Predict 对单个 EEG 通道调用推理服务，返回按时间升序的分期序列
func (c *HTTPClassifier) Predict(ctx context.Context, view *eeg.Recording, eegChannel, eogChannel string) ([]staging.Stage, error) {
	eegCh, err := view.Channel(eegChannel)
	if err != nil {
		return nil, err
	}

	request := predictRequest{
		RecordingID:  view.ID,
		SamplingRate: view.SamplingRate,
		EEGName:      eegChannel,
		EEGSamples:   eegCh.Samples,
	}
	if eogChannel != "" {
		eogCh, err := view.Channel(eogChannel)
		if err != nil {
			return nil, err
		}
		request.EOGName = eogChannel
		request.EOGSamples = eogCh.Samples
	}

	c.logger.Info("Calling staging inference service",
		zap.String("recording_id", view.ID),
		zap.String("eeg_channel", eegChannel),
		zap.String("eog_channel", eogChannel),
		zap.Int("samples", len(eegCh.Samples)),
	)

	var response predictResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/staging/predict")

	if err != nil {
		c.logger.Error("Staging inference call failed",
			zap.String("recording_id", view.ID),
			zap.String("eeg_channel", eegChannel),
			zap.Error(err),
		)
		return nil, fmt.Errorf("staging inference request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("staging inference returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if response.Status != 0 {
		return nil, fmt.Errorf("staging inference error (status %d): %s", response.Status, response.Msg)
	}

	stages, err := staging.ParseSequence(response.Stages)
	if err != nil {
		return nil, fmt.Errorf("staging inference returned invalid stages: %w", err)
	}

	return stages, nil
}
