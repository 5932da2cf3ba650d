package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-eegstaging/internal/eeg"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestGetRecording_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	repo := NewRecordingRepository(db, zap.NewNop())
	recordingID := "rec-001"

	metaRows := sqlmock.NewRows([]string{"recording_id", "recording_name", "sampling_rate"}).
		AddRow(recordingID, "Night study", 256.0)
	mock.ExpectQuery(`SELECT(.|\n)*FROM recordings`).
		WithArgs(recordingID).
		WillReturnRows(metaRows)

	channelRows := sqlmock.NewRows([]string{"channel_name", "channel_kind", "samples"}).
		AddRow("C4", "eeg", []byte("{1,2,3}")).
		AddRow("M1", "ref", []byte("{0.5,0.5,0.5}"))
	mock.ExpectQuery(`SELECT(.|\n)*FROM recording_channels`).
		WithArgs(recordingID).
		WillReturnRows(channelRows)

	annotationRows := sqlmock.NewRows([]string{"onset_seconds", "duration_seconds", "description"}).
		AddRow(30.0, 30.0, "bad")
	mock.ExpectQuery(`SELECT(.|\n)*FROM recording_annotations`).
		WithArgs(recordingID).
		WillReturnRows(annotationRows)

	recording, err := repo.GetRecording(context.Background(), recordingID)

	require.NoError(t, err)
	assert.Equal(t, recordingID, recording.ID)
	assert.Equal(t, "Night study", recording.Name)
	assert.Equal(t, 256.0, recording.SamplingRate)
	assert.Equal(t, []string{"C4", "M1"}, recording.ChannelNames())

	c4, err := recording.Channel("C4")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, c4.Samples)
	assert.Equal(t, "eeg", c4.Kind)

	annotations := recording.Annotations()
	require.Len(t, annotations, 1)
	assert.Equal(t, eeg.Annotation{Onset: 30, Duration: 30, Description: "bad"}, annotations[0])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecording_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	repo := NewRecordingRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT(.|\n)*FROM recordings`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRecording(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecording_RaggedChannels(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	repo := NewRecordingRepository(db, zap.NewNop())
	recordingID := "rec-002"

	metaRows := sqlmock.NewRows([]string{"recording_id", "recording_name", "sampling_rate"}).
		AddRow(recordingID, "Corrupt", 256.0)
	mock.ExpectQuery(`SELECT(.|\n)*FROM recordings`).
		WithArgs(recordingID).
		WillReturnRows(metaRows)

	// 通道长度不一致的记录在加载时报错
	channelRows := sqlmock.NewRows([]string{"channel_name", "channel_kind", "samples"}).
		AddRow("C4", "eeg", []byte("{1,2,3}")).
		AddRow("M1", "ref", []byte("{0.5}"))
	mock.ExpectQuery(`SELECT(.|\n)*FROM recording_channels`).
		WithArgs(recordingID).
		WillReturnRows(channelRows)

	_, err := repo.GetRecording(context.Background(), recordingID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent")
	require.NoError(t, mock.ExpectationsWereMet())
}
