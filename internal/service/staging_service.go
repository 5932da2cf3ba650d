package service

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-eegstaging/internal/classifier"
	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/consumer"
	"wisefido-eegstaging/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-eegstaging/internal/database"
	mqttcommon "wisefido-eegstaging/internal/mqtt"
	rediscommon "wisefido-eegstaging/internal/redis"
)

// StagingService EEG 分期服务
type StagingService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	consumer   *consumer.StagingConsumer
}

// NewStagingService 创建分期服务
func NewStagingService(cfg *config.Config, logger *zap.Logger) (*StagingService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 创建Repository
	recordingRepo := repository.NewRecordingRepository(db, logger)
	annotationRepo := repository.NewAnnotationRepository(db, logger)
	resultCache := repository.NewResultCache(redisClient, cfg.Staging.ResultCachePrefix, cfg.Staging.ResultCacheTTL, logger)

	// 创建分期器客户端
	clf := classifier.NewHTTPClassifier(&cfg.Classifier, logger)

	// 创建Consumer
	stagingConsumer := consumer.NewStagingConsumer(cfg, mqttClient, redisClient, recordingRepo, annotationRepo, resultCache, clf, logger)

	return &StagingService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		consumer:   stagingConsumer,
	}, nil
}

// Start 启动服务
func (s *StagingService) Start(ctx context.Context) error {
	s.logger.Info("Starting staging service",
		zap.String("request_topic", s.config.Staging.RequestTopic),
		zap.String("result_stream", s.config.Staging.ResultStream),
		zap.String("classifier_url", s.config.Classifier.BaseURL),
	)

	return s.consumer.Start(ctx)
}

// Stop 停止服务，释放所有连接
func (s *StagingService) Stop(ctx context.Context) error {
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop consumer", zap.Error(err))
	}

	s.mqttClient.Disconnect()

	if err := rediscommon.Close(s.redis); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	return nil
}
