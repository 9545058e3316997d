package platform

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// adapterBuilder builds adapters that run the model through the platform's
// own model package service.
type adapterBuilder struct {
	client *Client
}

func NewAdapterBuilder(client *Client) ports.AdapterBuilder {
	return &adapterBuilder{client: client}
}

func (b *adapterBuilder) IsAvailable() bool {
	return b.client.IsAvailable()
}

func (b *adapterBuilder) Build(ctx context.Context, model *domain.Model) (ports.ModelAdapter, error) {
	if !b.IsAvailable() {
		return nil, domain.ErrAdapterNotAvailable
	}
	log.WithFields(log.Fields{
		"model_id":   model.ID,
		"package_id": model.PackageID,
	}).Debug("using platform model adapter")
	return &remoteAdapter{client: b.client, model: model}, nil
}

type remoteAdapter struct {
	client *Client
	model  *domain.Model
}

type predictRequest struct {
	ItemIDs           []string `json:"itemIds"`
	UploadAnnotations bool     `json:"uploadAnnotations"`
	ConfThreshold     float64  `json:"confThreshold"`
	BatchSize         int      `json:"batchSize"`
}

type predictResponse struct {
	Results []struct {
		ItemID      string               `json:"itemId"`
		Annotations []*domain.Annotation `json:"annotations"`
	} `json:"results"`
}

// PredictItems sends the items in batches of opts.BatchSize. The platform
// uploads the annotations itself when asked to.
func (a *remoteAdapter) PredictItems(ctx context.Context, items []*domain.Item, opts ports.PredictOptions) ([]ports.Prediction, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}

	predictions := make([]ports.Prediction, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		req := predictRequest{
			ItemIDs:           make([]string, len(batch)),
			UploadAnnotations: opts.UploadAnnotations,
			ConfThreshold:     opts.ConfThreshold,
			BatchSize:         batchSize,
		}
		for i, item := range batch {
			req.ItemIDs[i] = item.ID
		}

		var resp predictResponse
		if err := a.client.post(ctx, "/models/"+escape(a.model.ID)+"/predict", req, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, notFoundAs(err, domain.ErrModelNotFound, a.model.ID))
		}

		byItem := make(map[string][]*domain.Annotation, len(resp.Results))
		for _, r := range resp.Results {
			byItem[r.ItemID] = append(byItem[r.ItemID], r.Annotations...)
		}
		for _, item := range batch {
			anns := byItem[item.ID]
			if anns == nil {
				anns = []*domain.Annotation{}
			}
			predictions = append(predictions, ports.Prediction{Item: item, Annotations: anns})
		}

		log.WithFields(log.Fields{
			"model_id": a.model.ID,
			"batch":    len(batch),
			"done":     end,
			"total":    len(items),
		}).Debug("predicted batch")
	}
	return predictions, nil
}

var _ ports.AdapterBuilder = (*adapterBuilder)(nil)
