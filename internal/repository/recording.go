package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-eegstaging/internal/eeg"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrRecordingNotFound 记录不存在
var ErrRecordingNotFound = errors.New("recording not found")

// RecordingRepository 脑电记录仓库
//
// recordings 存记录元数据，recording_channels 按通道存采样数据
// （float8[]），recording_annotations 存标注事件。
type RecordingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordingRepository 创建记录仓库
func NewRecordingRepository(db *sql.DB, logger *zap.Logger) *RecordingRepository {
	return &RecordingRepository{
		db:     db,
		logger: logger,
	}
}

// GetRecording 加载完整记录（元数据 + 通道数据 + 标注）
func (r *RecordingRepository) GetRecording(ctx context.Context, recordingID string) (*eeg.Recording, error) {
	metaQuery := `
		SELECT
			recording_id,
			recording_name,
			sampling_rate
		FROM recordings
		WHERE recording_id = $1
	`

	var id, name string
	var samplingRate float64
	err := r.db.QueryRowContext(ctx, metaQuery, recordingID).Scan(&id, &name, &samplingRate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
		}
		return nil, fmt.Errorf("failed to query recording: %w", err)
	}

	channelQuery := `
		SELECT
			channel_name,
			channel_kind,
			samples
		FROM recording_channels
		WHERE recording_id = $1
		ORDER BY channel_index
	`

	rows, err := r.db.QueryContext(ctx, channelQuery, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recording channels: %w", err)
	}
	defer rows.Close()

	var channels []eeg.Channel
	for rows.Next() {
		var ch eeg.Channel
		var samples pq.Float64Array
		if err := rows.Scan(&ch.Name, &ch.Kind, &samples); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		ch.Samples = []float64(samples)
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}

	recording, err := eeg.NewRecording(id, name, samplingRate, channels)
	if err != nil {
		return nil, fmt.Errorf("recording %s is inconsistent: %w", recordingID, err)
	}

	annotations, err := r.getAnnotations(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	recording.SetAnnotations(annotations)

	r.logger.Debug("Loaded recording",
		zap.String("recording_id", recordingID),
		zap.Int("channels", len(channels)),
		zap.Int("annotations", len(annotations)),
		zap.Float64("sampling_rate", samplingRate),
	)

	return recording, nil
}

func (r *RecordingRepository) getAnnotations(ctx context.Context, recordingID string) ([]eeg.Annotation, error) {
	query := `
		SELECT
			onset_seconds,
			duration_seconds,
			description
		FROM recording_annotations
		WHERE recording_id = $1
		ORDER BY onset_seconds
	`

	rows, err := r.db.QueryContext(ctx, query, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []eeg.Annotation
	for rows.Next() {
		var a eeg.Annotation
		if err := rows.Scan(&a.Onset, &a.Duration, &a.Description); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}

	return annotations, nil
}
