package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ml-pipeline-nodes/internal/config"
	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.PlatformConfig{
		URL:        srv.URL + "/api/v1/",
		Token:      "secret",
		Timeout:    2 * time.Second,
		RateLimit:  1000,
		RateBurst:  100,
		MaxRetries: 2,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestModelRepository_GetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/models/m-1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":            "m-1",
			"name":          "detector",
			"projectId":     "p-1",
			"configuration": map[string]interface{}{"conf_threshold": 0.3},
		})
	})

	model, err := NewModelRepository(client).GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "detector", model.Name)
	assert.Equal(t, "p-1", model.ProjectID)
	assert.Equal(t, 0.3, model.Configuration["conf_threshold"])
}

func TestModelRepository_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no such model"})
	})

	_, err := NewModelRepository(client).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestModelRepository_CloneNameConflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/models/base/clone", r.URL.Path)
		var opts domain.CloneOptions
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		if opts.Name == "taken" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name exists"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "new", "name": opts.Name})
	})
	repo := NewModelRepository(client)

	_, err := repo.Clone(context.Background(), "base", domain.CloneOptions{Name: "taken"})
	assert.ErrorIs(t, err, domain.ErrModelNameConflict)

	model, err := repo.Clone(context.Background(), "base", domain.CloneOptions{Name: "free", Status: domain.ModelStatusCreated})
	require.NoError(t, err)
	assert.Equal(t, "free", model.Name)
}

func TestItemRepository_UpdateSendsSystemFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("system"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	item := &domain.Item{ID: "i-1", Metadata: domain.Metadata{}}
	item.Metadata.SetSystemTag("train")
	updated, err := NewItemRepository(client).Update(context.Background(), item, true)
	require.NoError(t, err)
	assert.Equal(t, true, updated.Metadata.LookupMap("system", "tags")["train"])
}

func TestExecutionRepository_UpdateAction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/executions/e-1/progress", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "update model", body["action"])
		w.WriteHeader(http.StatusNoContent)
	})

	err := NewExecutionRepository(client).UpdateAction(context.Background(), "e-1", "update model")
	assert.NoError(t, err)
}

func TestPipelineRepository_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := NewPipelineRepository(client).UpdateVariables(context.Background(), "p-1", map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
}

func TestClient_RetriesUnavailable(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "d-1", "name": "coco"})
	})

	dataset, err := NewDatasetRepository(client).GetByID(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "coco", dataset.Name)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewDatasetRepository(client).GetByID(context.Background(), "d-1")
	assert.ErrorIs(t, err, domain.ErrPlatformRequest)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_PostRetriedOnlyWhenRejected(t *testing.T) {
	tests := []struct {
		name          string
		firstStatus   int
		cloneApplied  bool
		expectedCalls int32
		expectedErr   error
	}{
		{name: "gateway timeout after clone", firstStatus: http.StatusGatewayTimeout, cloneApplied: true, expectedCalls: 1, expectedErr: domain.ErrPlatformRequest},
		{name: "bad gateway after clone", firstStatus: http.StatusBadGateway, cloneApplied: true, expectedCalls: 1, expectedErr: domain.ErrPlatformRequest},
		{name: "unavailable", firstStatus: http.StatusServiceUnavailable, expectedCalls: 1, expectedErr: domain.ErrPlatformRequest},
		{name: "rate limited", firstStatus: http.StatusTooManyRequests, expectedCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				calls int32
				mu    sync.Mutex
				names = map[string]bool{}
			)
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var opts domain.CloneOptions
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&opts))

				mu.Lock()
				defer mu.Unlock()
				if atomic.AddInt32(&calls, 1) == 1 {
					names[opts.Name] = tt.cloneApplied
					w.WriteHeader(tt.firstStatus)
					return
				}
				if names[opts.Name] {
					writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name exists"})
					return
				}
				names[opts.Name] = true
				writeJSON(w, http.StatusOK, map[string]string{"id": "new", "name": opts.Name})
			})

			model, err := NewModelRepository(client).Clone(context.Background(), "base", domain.CloneOptions{Name: "detector"})
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.NotErrorIs(t, err, domain.ErrModelNameConflict)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "detector", model.Name)
			}
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestRetryPolicyByMethod(t *testing.T) {
	tests := []struct {
		method   string
		expected bool
	}{
		{method: http.MethodGet, expected: true},
		{method: http.MethodPatch, expected: true},
		{method: http.MethodPost, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.expected, idempotent(tt.method))
			assert.Equal(t, tt.expected, retryable(tt.method, http.StatusGatewayTimeout))
			assert.True(t, retryable(tt.method, http.StatusTooManyRequests))
			assert.False(t, retryable(tt.method, http.StatusBadRequest))
		})
	}
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewItemRepository(client).GetByID(context.Background(), "i-1")
	assert.ErrorIs(t, err, domain.ErrPlatformRequest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMetricsSource_FollowsPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets/d-1/scores", r.URL.Path)
		assert.Equal(t, "m-1", r.URL.Query().Get("modelId"))
		switch r.URL.Query().Get("page") {
		case "0":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"items":       []map[string]interface{}{{"itemId": "a", "annotationScore": 0.5}},
				"hasNextPage": true,
			})
		case "1":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"items":       []map[string]interface{}{{"itemId": "b", "annotationScore": 0.7}},
				"hasNextPage": false,
			})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	scores, err := NewMetricsSource(client).ListItemScores(context.Background(), "d-1", "m-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "b", scores[1].ItemID)
	assert.Equal(t, 0.7, scores[1].AnnotationScore)
}

func TestMetricsSource_TrainingSamples(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/models/m-1/metrics", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items": []map[string]interface{}{{"modelId": "m-1", "figure": "loss", "legend": "val", "x": 3, "y": 0.25}},
		})
	})

	samples, err := NewMetricsSource(client).ListTrainingSamples(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, domain.MetricSample{ModelID: "m-1", Figure: "loss", Legend: "val", X: 3, Y: 0.25}, samples[0])
}

func TestAdapterBuilder_PredictsInBatches(t *testing.T) {
	var (
		mu      sync.Mutex
		batches [][]string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/models/m-1/predict", r.URL.Path)
		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.4, req.ConfThreshold)
		mu.Lock()
		batches = append(batches, req.ItemIDs)
		mu.Unlock()

		results := []map[string]interface{}{}
		for _, id := range req.ItemIDs {
			if id == "b" {
				continue
			}
			results = append(results, map[string]interface{}{
				"itemId":      id,
				"annotations": []map[string]interface{}{{"itemId": id, "label": "car", "confidence": 0.9}},
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	})

	builder := NewAdapterBuilder(client)
	require.True(t, builder.IsAvailable())
	adapter, err := builder.Build(context.Background(), &domain.Model{ID: "m-1"})
	require.NoError(t, err)

	items := []*domain.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	predictions, err := adapter.PredictItems(context.Background(), items, ports.PredictOptions{
		UploadAnnotations: true,
		ConfThreshold:     0.4,
		BatchSize:         2,
	})
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, batches)
	mu.Unlock()
	require.Len(t, predictions, 3)
	assert.Equal(t, "b", predictions[1].Item.ID)
	assert.Empty(t, predictions[1].Annotations)
	assert.Equal(t, "car", predictions[2].Annotations[0].Label)
}

func TestAdapterBuilder_Unconfigured(t *testing.T) {
	builder := NewAdapterBuilder(NewClient(&config.PlatformConfig{}))
	assert.False(t, builder.IsAvailable())
	_, err := builder.Build(context.Background(), &domain.Model{ID: "m-1"})
	assert.ErrorIs(t, err, domain.ErrAdapterNotAvailable)
}
