package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-eegstaging/internal/eeg"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnnotationRepository 标注仓库
type AnnotationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnnotationRepository 创建标注仓库
func NewAnnotationRepository(db *sql.DB, logger *zap.Logger) *AnnotationRepository {
	return &AnnotationRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceAnnotations 用合并后的标注集合整体替换记录的标注行
//
// 调用方传入的集合已经是 既有标注 ∪ 新标注（合并在内存记录上完成），
// 这里只负责把最终集合落库。删除和插入在同一事务里。
func (r *AnnotationRepository) ReplaceAnnotations(ctx context.Context, recordingID string, annotations []eeg.Annotation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleteQuery := `DELETE FROM recording_annotations WHERE recording_id = $1`
	if _, err = tx.ExecContext(ctx, deleteQuery, recordingID); err != nil {
		return fmt.Errorf("failed to delete annotations: %w", err)
	}

	insertQuery := `
		INSERT INTO recording_annotations (
			annotation_id,
			recording_id,
			onset_seconds,
			duration_seconds,
			description
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, a := range annotations {
		if _, err = tx.ExecContext(ctx, insertQuery,
			uuid.New().String(),
			recordingID,
			a.Onset,
			a.Duration,
			a.Description,
		); err != nil {
			return fmt.Errorf("failed to insert annotation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit annotations: %w", err)
	}

	r.logger.Info("Saved recording annotations",
		zap.String("recording_id", recordingID),
		zap.Int("annotations", len(annotations)),
	)

	return nil
}
