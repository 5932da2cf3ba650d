package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/eeg"
	"wisefido-eegstaging/internal/models"
	"wisefido-eegstaging/internal/repository"
	"wisefido-eegstaging/internal/staging"
)

type stubPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *stubPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

type stubClassifier struct {
	row []staging.Stage
}

func (c *stubClassifier) Predict(_ context.Context, _ *eeg.Recording, _, _ string) ([]staging.Stage, error) {
	return c.row, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MQTT.QoS = 1
	cfg.Staging.RequestTopic = "eeg/staging/request"
	cfg.Staging.ResultTopic = "eeg/staging/result"
	cfg.Staging.ResultStream = "eegstaging:result:stream"
	cfg.Staging.ResultCachePrefix = "eegstaging:result:"
	cfg.Staging.ResultCacheTTL = 3600
	cfg.Staging.DefaultRefChannels = []string{"M1", "M2"}
	return cfg
}

func setupConsumer(t *testing.T, clf staging.Classifier) (*StagingConsumer, sqlmock.Sqlmock, *miniredis.Miniredis, *stubPublisher, *redis.Client) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	logger := zap.NewNop()
	publisher := &stubPublisher{}

	c := &StagingConsumer{
		config:         cfg,
		publisher:      publisher,
		redisClient:    redisClient,
		recordingRepo:  repository.NewRecordingRepository(db, logger),
		annotationRepo: repository.NewAnnotationRepository(db, logger),
		resultCache:    repository.NewResultCache(redisClient, cfg.Staging.ResultCachePrefix, cfg.Staging.ResultCacheTTL, logger),
		classifier:     clf,
		logger:         logger,
	}
	return c, mock, mr, publisher, redisClient
}

// expectRecording 设置加载 rec-001 的查询期望（C4 + M1，4 个采样点 @ 1 Hz）
func expectRecording(mock sqlmock.Sqlmock) {
	metaRows := sqlmock.NewRows([]string{"recording_id", "recording_name", "sampling_rate"}).
		AddRow("rec-001", "Night study", 1.0)
	mock.ExpectQuery(`SELECT(.|\n)*FROM recordings`).
		WithArgs("rec-001").
		WillReturnRows(metaRows)

	channelRows := sqlmock.NewRows([]string{"channel_name", "channel_kind", "samples"}).
		AddRow("C4", "eeg", []byte("{10,10,10,10}")).
		AddRow("M1", "ref", []byte("{1,1,1,1}"))
	mock.ExpectQuery(`SELECT(.|\n)*FROM recording_channels`).
		WithArgs("rec-001").
		WillReturnRows(channelRows)

	annotationRows := sqlmock.NewRows([]string{"onset_seconds", "duration_seconds", "description"}).
		AddRow(0.5, 1.0, "movement artifact")
	mock.ExpectQuery(`SELECT(.|\n)*FROM recording_annotations`).
		WithArgs("rec-001").
		WillReturnRows(annotationRows)
}

func TestHandleMessage_CompletesStagingFlow(t *testing.T) {
	clf := &stubClassifier{row: []staging.Stage{staging.StageWake, staging.StageN2, staging.StageN2, staging.StageWake}}
	c, mock, _, publisher, redisClient := setupConsumer(t, clf)

	expectRecording(mock)

	// 标注落库：既有 1 条 + 新增 2 条
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM recording_annotations`).
		WithArgs("rec-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recording_annotations`).
		WithArgs(sqlmock.AnyArg(), "rec-001", 0.5, 1.0, "movement artifact").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recording_annotations`).
		WithArgs(sqlmock.AnyArg(), "rec-001", 30.0, 30.0, "bad: N2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recording_annotations`).
		WithArgs(sqlmock.AnyArg(), "rec-001", 60.0, 30.0, "bad: N2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload, err := json.Marshal(models.StagingRequest{
		RequestID:    "req-1",
		RecordingID:  "rec-001",
		EEGChannels:  []string{"C4"},
		RefChannels:  []string{"M1"},
		SpecifyStage: true,
	})
	require.NoError(t, err)

	require.NoError(t, c.handleMessage("eeg/staging/request", payload))
	require.NoError(t, mock.ExpectationsWereMet())

	// 结果写入缓存
	cached, err := c.resultCache.GetResult(context.Background(), "rec-001")
	require.NoError(t, err)
	assert.Equal(t, "req-1", cached.RequestID)
	assert.Equal(t, []string{"W", "N2", "N2", "W"}, cached.Stages)
	assert.Equal(t, 4, cached.EpochCount)
	assert.InDelta(t, 50.0, cached.SleepPercentage, 1e-9)
	assert.Equal(t, 3, cached.AnnotationCount)

	// 结果发布到结果流
	entries, err := redisClient.XRange(context.Background(), "eegstaging:result:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// 按请求回执 completed
	require.Len(t, publisher.topics, 1)
	assert.Equal(t, "eeg/staging/result/req-1", publisher.topics[0])

	var status models.StagingStatus
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &status))
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "rec-001", status.RecordingID)
}

func TestHandleMessage_RecordingNotFound(t *testing.T) {
	clf := &stubClassifier{row: []staging.Stage{staging.StageWake}}
	c, mock, _, publisher, _ := setupConsumer(t, clf)

	mock.ExpectQuery(`SELECT(.|\n)*FROM recordings`).
		WithArgs("rec-missing").
		WillReturnError(sql.ErrNoRows)

	payload, err := json.Marshal(models.StagingRequest{
		RequestID:   "req-2",
		RecordingID: "rec-missing",
		EEGChannels: []string{"C4"},
		RefChannels: []string{"M1"},
	})
	require.NoError(t, err)

	require.Error(t, c.handleMessage("eeg/staging/request", payload))
	require.NoError(t, mock.ExpectationsWereMet())

	// 失败回执
	require.Len(t, publisher.topics, 1)
	assert.Equal(t, "eeg/staging/result/req-2", publisher.topics[0])

	var status models.StagingStatus
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &status))
	assert.Equal(t, "failed", status.Status)
	assert.NotEmpty(t, status.Error)
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	c, _, _, publisher, _ := setupConsumer(t, &stubClassifier{})

	err := c.handleMessage("eeg/staging/request", []byte("not json"))

	require.Error(t, err)
	assert.Empty(t, publisher.topics)
}

func TestHandleMessage_MissingFields(t *testing.T) {
	c, _, _, publisher, _ := setupConsumer(t, &stubClassifier{})

	payload, err := json.Marshal(models.StagingRequest{RecordingID: "rec-001"})
	require.NoError(t, err)

	require.Error(t, c.handleMessage("eeg/staging/request", payload))

	// 无 EEG 通道的请求直接回执失败（RequestID 由服务生成）
	require.Len(t, publisher.topics, 1)
	var status models.StagingStatus
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &status))
	assert.Equal(t, "failed", status.Status)
	assert.NotEmpty(t, status.RequestID)
}

func TestProcessRequest_DefaultReferenceChannels(t *testing.T) {
	clf := &stubClassifier{row: []staging.Stage{staging.StageWake, staging.StageWake, staging.StageWake, staging.StageWake}}
	c, mock, _, _, _ := setupConsumer(t, clf)

	// 默认参考集是 M1/M2，记录里没有 M2 → 会话构造失败
	expectRecording(mock)

	err := c.processRequest(context.Background(), &models.StagingRequest{
		RequestID:   "req-3",
		RecordingID: "rec-001",
		EEGChannels: []string{"C4"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, eeg.ErrChannelNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
