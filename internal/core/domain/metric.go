package domain

// MetricSample is one point of a training curve logged by a model.
type MetricSample struct {
	ModelID string  `json:"modelId"`
	Figure  string  `json:"figure"`
	Legend  string  `json:"legend"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// ItemScore is an annotation-level evaluation score of a model's prediction
// against the ground truth of an item.
type ItemScore struct {
	ItemID          string  `json:"itemId"`
	AnnotationID    string  `json:"annotationId"`
	AnnotationScore float64 `json:"annotationScore"`
}

// MetricRow is one row of a precision/recall style table computed for a model
// on a dataset.
type MetricRow struct {
	Metric    string  `json:"metric"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
	Value     float64 `json:"value"`
	PreModel  string  `json:"preModel,omitempty"`
}
