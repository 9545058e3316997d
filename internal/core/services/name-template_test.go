package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ml-pipeline-nodes/internal/core/domain"
)

func TestRenderModelName(t *testing.T) {
	now := time.Date(2024, 3, 7, 14, 5, 9, 123456000, time.UTC)
	data := NameTemplateData{
		Model:   &domain.Model{ID: "m-1", Name: "yolo"},
		Dataset: &domain.Dataset{ID: "d-1", Name: "street", ProjectID: "p-1"},
		Now:     now,
	}

	tests := []struct {
		name     string
		tmpl     string
		expected string
	}{
		{name: "no tags", tmpl: "plain-name", expected: "plain-name"},
		{name: "model and dataset", tmpl: "{model.name}-{dataset.name}", expected: "yolo-street"},
		{name: "ids", tmpl: "{model.id}_{dataset.id}_{project.id}", expected: "m-1_d-1_p-1"},
		{name: "default template", tmpl: DefaultModelNameTemplate, expected: "yolo-2024_03_07-T14_05_09"},
		{name: "double quoted strftime", tmpl: `{datetime.datetime.now().strftime("%y%m%d")}`, expected: "240307"},
		{name: "strftime literal digits", tmpl: "{datetime.datetime.now().strftime('v1_%H%M')}", expected: "v1_1405"},
		{name: "strftime micro and percent", tmpl: "{datetime.datetime.now().strftime('%f%%')}", expected: "123456%"},
		{name: "now default layout", tmpl: "x-{now}", expected: "x-2024_03_07-T14_05_09"},
		{name: "now with go layout", tmpl: "x-{now:2006}", expected: "x-2024"},
		{name: "spaces around expression", tmpl: "{ model.name }", expected: "yolo"},
		{name: "empty tag", tmpl: "a{}b", expected: "ab"},
		{name: "unknown expression", tmpl: "a-{os.system('rm')}-b", expected: "a--b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderModelName(tt.tmpl, data)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderModelName_UnclosedTagKeptLiterally(t *testing.T) {
	got, err := RenderModelName("name-{model.name", NameTemplateData{Now: time.Now()})
	assert.NoError(t, err)
	assert.Equal(t, "name-{model.name", got)
}

func TestRenderModelName_MissingEntities(t *testing.T) {
	got, err := RenderModelName("{model.name}x", NameTemplateData{Now: time.Now()})
	assert.NoError(t, err)
	assert.Equal(t, "x", got)
}
