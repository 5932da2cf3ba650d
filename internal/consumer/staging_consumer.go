package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/models"
	"wisefido-eegstaging/internal/repository"
	"wisefido-eegstaging/internal/staging"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mqttcommon "wisefido-eegstaging/internal/mqtt"
	rediscommon "wisefido-eegstaging/internal/redis"
)

// Publisher 请求回执发布接口（由 MQTT 客户端实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// StagingConsumer 分期任务 MQTT 消费者
//
// 订阅分期请求主题，对每个请求执行 加载记录 → 分期预测 → 标注落库 →
// 睡眠占比 的完整流程，结果写入 Redis 缓存和结果流，并按请求回执。
type StagingConsumer struct {
	config         *config.Config
	mqttClient     *mqttcommon.Client
	publisher      Publisher
	redisClient    *redis.Client
	recordingRepo  *repository.RecordingRepository
	annotationRepo *repository.AnnotationRepository
	resultCache    *repository.ResultCache
	classifier     staging.Classifier
	logger         *zap.Logger
}

// NewStagingConsumer 创建分期任务消费者
func NewStagingConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	redisClient *redis.Client,
	recordingRepo *repository.RecordingRepository,
	annotationRepo *repository.AnnotationRepository,
	resultCache *repository.ResultCache,
	clf staging.Classifier,
	logger *zap.Logger,
) *StagingConsumer {
	c := &StagingConsumer{
		config:         cfg,
		mqttClient:     mqttClient,
		redisClient:    redisClient,
		recordingRepo:  recordingRepo,
		annotationRepo: annotationRepo,
		resultCache:    resultCache,
		classifier:     clf,
		logger:         logger,
	}
	if mqttClient != nil {
		c.publisher = mqttClient
	}
	return c
}

// Start 启动消费者
func (c *StagingConsumer) Start(ctx context.Context) error {
	topic := c.config.Staging.RequestTopic
	if topic == "" {
		return fmt.Errorf("staging request topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to staging request topic: %w", err)
	}

	c.logger.Info("Staging consumer started",
		zap.String("topic", topic),
		zap.String("result_stream", c.config.Staging.ResultStream),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *StagingConsumer) Stop(ctx context.Context) error {
	topic := c.config.Staging.RequestTopic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("Staging consumer stopped")
	return nil
}

// handleMessage 处理一条分期请求消息
func (c *StagingConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received staging request",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var request models.StagingRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		c.logger.Error("Failed to unmarshal staging request",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal staging request: %w", err)
	}
	if request.RequestID == "" {
		request.RequestID = uuid.New().String()
	}

	if err := c.processRequest(context.Background(), &request); err != nil {
		c.logger.Error("Failed to process staging request",
			zap.String("request_id", request.RequestID),
			zap.String("recording_id", request.RecordingID),
			zap.Error(err),
		)
		c.publishStatus(&models.StagingStatus{
			RequestID:   request.RequestID,
			RecordingID: request.RecordingID,
			Status:      "failed",
			Error:       err.Error(),
			Timestamp:   time.Now().Unix(),
		})
		return err
	}

	return nil
}

// processRequest 执行一次完整的分期流程
func (c *StagingConsumer) processRequest(ctx context.Context, request *models.StagingRequest) error {
	if request.RecordingID == "" {
		return fmt.Errorf("staging request has no recording_id")
	}
	if len(request.EEGChannels) == 0 {
		return fmt.Errorf("staging request has no EEG channels")
	}

	refChannels := request.RefChannels
	if request.RefMode == "" && len(refChannels) == 0 {
		refChannels = c.config.Staging.DefaultRefChannels
	}

	// 1. 加载记录
	recording, err := c.recordingRepo.GetRecording(ctx, request.RecordingID)
	if err != nil {
		return fmt.Errorf("failed to load recording: %w", err)
	}

	// 2. 创建分期会话并预测
	session, err := staging.NewSession(recording, c.classifier, staging.Config{
		EEGChannels: request.EEGChannels,
		EOGChannel:  request.EOGChannel,
		RefChannels: refChannels,
		RefMode:     request.RefMode,
		KeepN1:      request.KeepN1,
	}, c.logger)
	if err != nil {
		return err
	}

	consensus, err := session.Predict(ctx)
	if err != nil {
		return err
	}

	// 3. 睡眠时段标注并落库（与记录既有标注合并）
	if _, err := session.Annotate(nil, request.SpecifyStage); err != nil {
		return err
	}
	annotations := recording.Annotations()
	if err := c.annotationRepo.ReplaceAnnotations(ctx, recording.ID, annotations); err != nil {
		return fmt.Errorf("failed to save annotations: %w", err)
	}

	// 4. 睡眠占比
	percentage, err := session.SleepPercentage(nil)
	if err != nil {
		return err
	}

	result := &models.StagingResult{
		RequestID:       request.RequestID,
		RecordingID:     recording.ID,
		RecordingName:   recording.Name,
		Stages:          staging.SequenceStrings(consensus),
		EpochCount:      len(consensus),
		SleepPercentage: percentage,
		AnnotationCount: len(annotations),
		Timestamp:       time.Now().Unix(),
	}

	// 5. 结果写缓存、发结果流、按请求回执
	if err := c.resultCache.SaveResult(ctx, result); err != nil {
		c.logger.Error("Failed to cache staging result",
			zap.String("recording_id", recording.ID),
			zap.Error(err),
		)
		// 缓存失败不阻塞结果发布
	}

	streamID, err := rediscommon.PublishJSONToStream(ctx, c.redisClient, c.config.Staging.ResultStream, result)
	if err != nil {
		return fmt.Errorf("failed to publish result to stream: %w", err)
	}

	c.publishStatus(&models.StagingStatus{
		RequestID:   request.RequestID,
		RecordingID: recording.ID,
		Status:      "completed",
		Timestamp:   result.Timestamp,
	})

	c.logger.Info("Staging request completed",
		zap.String("request_id", request.RequestID),
		zap.String("recording_id", recording.ID),
		zap.Int("epochs", result.EpochCount),
		zap.Float64("sleep_percentage", result.SleepPercentage),
		zap.String("stream_id", streamID),
	)

	return nil
}

// publishStatus 发布单个请求的回执
func (c *StagingConsumer) publishStatus(status *models.StagingStatus) {
	if c.publisher == nil {
		return
	}

	payload, err := json.Marshal(status)
	if err != nil {
		c.logger.Error("Failed to marshal staging status", zap.Error(err))
		return
	}

	topic := fmt.Sprintf("%s/%s", c.config.Staging.ResultTopic, status.RequestID)
	if err := c.publisher.Publish(topic, c.config.MQTT.QoS, false, payload); err != nil {
		c.logger.Error("Failed to publish staging status",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
