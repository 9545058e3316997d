package domain

type Dataset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

type Item struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	DatasetID string   `json:"datasetId"`
	Stream    string   `json:"stream,omitempty"`
	MimeType  string   `json:"mimetype,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// EnsureMetadata initializes the metadata document so callers can write into it.
func (i *Item) EnsureMetadata() Metadata {
	if i.Metadata == nil {
		i.Metadata = Metadata{}
	}
	return i.Metadata
}

// Annotation is a single prediction or label on an item.
type Annotation struct {
	ID          string      `json:"id,omitempty"`
	ItemID      string      `json:"itemId"`
	Label       string      `json:"label"`
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates,omitempty"`
	Confidence  float64     `json:"confidence"`
	ModelID     string      `json:"modelId,omitempty"`
	Metadata    Metadata    `json:"metadata,omitempty"`
}
