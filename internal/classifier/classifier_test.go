package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/eeg"
	"wisefido-eegstaging/internal/staging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testView(t *testing.T) *eeg.Recording {
	t.Helper()

	recording, err := eeg.NewRecording("rec-001", "Night study", 2, []eeg.Channel{
		{Name: "C4", Kind: eeg.KindEEG, Samples: []float64{1.5, 2.5, 3.5, 4.5}},
		{Name: "EOG", Kind: eeg.KindEOG, Samples: []float64{0.1, 0.2, 0.3, 0.4}},
	})
	require.NoError(t, err)
	return recording
}

func newTestClassifier(serverURL string) *HTTPClassifier {
	return NewHTTPClassifier(&config.ClassifierConfig{
		BaseURL:        serverURL,
		TimeoutSeconds: 5,
		RetryCount:     0,
	}, zap.NewNop())
}

func TestHTTPClassifier_Predict_Success(t *testing.T) {
	var received predictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/staging/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(predictResponse{
			Status: 0,
			Stages: []string{"W", "N2", "N2", "R"},
		})
	}))
	defer server.Close()

	clf := newTestClassifier(server.URL)

	stages, err := clf.Predict(context.Background(), testView(t), "C4", "EOG")
	require.NoError(t, err)
	assert.Equal(t, []staging.Stage{staging.StageWake, staging.StageN2, staging.StageN2, staging.StageREM}, stages)

	// 请求携带重参考后的通道样本和采样率
	assert.Equal(t, "rec-001", received.RecordingID)
	assert.Equal(t, 2.0, received.SamplingRate)
	assert.Equal(t, "C4", received.EEGName)
	assert.Equal(t, "EOG", received.EOGName)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, received.EEGSamples)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, received.EOGSamples)
}

func TestHTTPClassifier_Predict_WithoutEOG(t *testing.T) {
	var received predictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(predictResponse{Stages: []string{"W"}})
	}))
	defer server.Close()

	clf := newTestClassifier(server.URL)

	_, err := clf.Predict(context.Background(), testView(t), "C4", "")
	require.NoError(t, err)
	assert.Empty(t, received.EOGName)
	assert.Empty(t, received.EOGSamples)
}

func TestHTTPClassifier_Predict_ChannelMissing(t *testing.T) {
	clf := newTestClassifier("http://localhost:1")

	_, err := clf.Predict(context.Background(), testView(t), "Pz", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, eeg.ErrChannelNotFound)
}

func TestHTTPClassifier_Predict_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Status: 2, Msg: "model not loaded"})
	}))
	defer server.Close()

	clf := newTestClassifier(server.URL)

	_, err := clf.Predict(context.Background(), testView(t), "C4", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPClassifier_Predict_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	clf := newTestClassifier(server.URL)

	_, err := clf.Predict(context.Background(), testView(t), "C4", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPClassifier_Predict_InvalidStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Stages: []string{"W", "N4"}})
	}))
	defer server.Close()

	clf := newTestClassifier(server.URL)

	_, err := clf.Predict(context.Background(), testView(t), "C4", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, staging.ErrInvalidStageLabel)
}
