package kserve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// inferenceAdapter calls the predictor of one InferenceService with the V1
// inference protocol.
type inferenceAdapter struct {
	model       *domain.Model
	serviceName string
	baseURL     string
	httpClient  *http.Client
	annotations ports.AnnotationRepository
}

type instance struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name,omitempty"`
	Stream   string `json:"stream,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

type v1Request struct {
	Instances []instance `json:"instances"`
}

type predictedBox struct {
	Label       string      `json:"label"`
	Type        string      `json:"type"`
	Confidence  float64     `json:"confidence"`
	Coordinates interface{} `json:"coordinates"`
}

// v1Response holds one prediction list per request instance, in order.
type v1Response struct {
	Predictions [][]predictedBox `json:"predictions"`
}

func (a *inferenceAdapter) PredictItems(ctx context.Context, items []*domain.Item, opts ports.PredictOptions) ([]ports.Prediction, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}

	out := make([]ports.Prediction, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		resp, err := a.predictBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Predictions) != len(batch) {
			return nil, fmt.Errorf("%w: %s returned %d predictions for %d items",
				domain.ErrPredictionFailed, a.serviceName, len(resp.Predictions), len(batch))
		}

		for i, item := range batch {
			anns := a.toAnnotations(item, resp.Predictions[i], opts.ConfThreshold)
			if opts.UploadAnnotations && len(anns) > 0 {
				uploaded, err := a.annotations.Upload(ctx, item.ID, anns)
				if err != nil {
					return nil, fmt.Errorf("upload annotations of item %s: %w", item.ID, err)
				}
				anns = uploaded
			}
			out = append(out, ports.Prediction{Item: item, Annotations: anns})
		}

		log.WithFields(log.Fields{
			"inference_service": a.serviceName,
			"batch":             len(batch),
			"done":              end,
			"total":             len(items),
		}).Debug("predicted batch")
	}
	return out, nil
}

func (a *inferenceAdapter) predictBatch(ctx context.Context, batch []*domain.Item) (*v1Response, error) {
	req := v1Request{Instances: make([]instance, len(batch))}
	for i, item := range batch {
		req.Instances[i] = instance{ItemID: item.ID, Name: item.Name, Stream: item.Stream, MimeType: item.MimeType}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimSuffix(a.baseURL, "/"), a.serviceName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPredictionFailed, a.serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrPredictionFailed, a.serviceName, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out v1Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrPredictionFailed, a.serviceName, err)
	}
	return &out, nil
}

// toAnnotations drops boxes below the confidence threshold.
func (a *inferenceAdapter) toAnnotations(item *domain.Item, boxes []predictedBox, threshold float64) []*domain.Annotation {
	anns := make([]*domain.Annotation, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence < threshold {
			continue
		}
		anns = append(anns, &domain.Annotation{
			ItemID:      item.ID,
			Label:       b.Label,
			Type:        b.Type,
			Coordinates: b.Coordinates,
			Confidence:  b.Confidence,
			ModelID:     a.model.ID,
			Metadata: domain.Metadata{
				"user": map[string]interface{}{
					"model": map[string]interface{}{
						"model_id":   a.model.ID,
						"name":       a.model.Name,
						"confidence": b.Confidence,
					},
				},
			},
		})
	}
	return anns
}
