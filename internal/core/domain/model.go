package domain

import "time"

type ModelStatus string

const (
	ModelStatusCreated  ModelStatus = "created"
	ModelStatusTrained  ModelStatus = "trained"
	ModelStatusDeployed ModelStatus = "deployed"
	ModelStatusFailed   ModelStatus = "failed"
)

// Model is the platform's model entity. Only the fields the nodes read or
// write are mirrored here.
type Model struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	ProjectID     string                 `json:"projectId"`
	DatasetID     string                 `json:"datasetId,omitempty"`
	PackageID     string                 `json:"packageId,omitempty"`
	Status        ModelStatus            `json:"status,omitempty"`
	Configuration map[string]interface{} `json:"configuration"`
	Metadata      Metadata               `json:"metadata"`
	CreatedAt     time.Time              `json:"createdAt,omitempty"`
}

// Subset returns the DQL filter the model was trained with for the given
// subset name (metadata.system.subsets.<name>).
func (m *Model) Subset(name string) Filter {
	if m.Metadata == nil {
		return Filter{}
	}
	return Filter(m.Metadata.LookupMap("system", "subsets", name))
}

// ConfigValue returns configuration[key] or def when the key is unset.
func (m *Model) ConfigValue(key string, def interface{}) interface{} {
	if m.Configuration == nil {
		return def
	}
	v, ok := m.Configuration[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// Filter is a DQL custom filter document.
type Filter map[string]interface{}

func (f Filter) IsEmpty() bool {
	return len(f) == 0
}

// CloneOptions are the parameters of a model clone request.
type CloneOptions struct {
	Name             string                 `json:"name"`
	ProjectID        string                 `json:"projectId"`
	DatasetID        string                 `json:"datasetId"`
	Configuration    map[string]interface{} `json:"configuration"`
	TrainFilter      Filter                 `json:"trainFilter"`
	ValidationFilter Filter                 `json:"validationFilter"`
	Status           ModelStatus            `json:"status"`
}
