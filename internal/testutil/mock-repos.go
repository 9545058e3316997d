package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// MockModelRepo is a mock of ModelRepository.
type MockModelRepo struct {
	mock.Mock
}

func (m *MockModelRepo) GetByID(ctx context.Context, id string) (*domain.Model, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Model), args.Error(1)
}

func (m *MockModelRepo) Clone(ctx context.Context, baseID string, opts domain.CloneOptions) (*domain.Model, error) {
	args := m.Called(ctx, baseID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Model), args.Error(1)
}

func (m *MockModelRepo) Update(ctx context.Context, model *domain.Model, system bool) (*domain.Model, error) {
	args := m.Called(ctx, model, system)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Model), args.Error(1)
}

// MockDatasetRepo is a mock of DatasetRepository.
type MockDatasetRepo struct {
	mock.Mock
}

func (m *MockDatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

// MockItemRepo is a mock of ItemRepository.
type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *MockItemRepo) Update(ctx context.Context, item *domain.Item, system bool) (*domain.Item, error) {
	args := m.Called(ctx, item, system)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

// MockAnnotationRepo is a mock of AnnotationRepository.
type MockAnnotationRepo struct {
	mock.Mock
}

func (m *MockAnnotationRepo) Upload(ctx context.Context, itemID string, annotations []*domain.Annotation) ([]*domain.Annotation, error) {
	args := m.Called(ctx, itemID, annotations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, string, []*domain.Annotation) []*domain.Annotation); ok {
		return fn(ctx, itemID, annotations), args.Error(1)
	}
	return args.Get(0).([]*domain.Annotation), args.Error(1)
}

// MockExecutionRepo is a mock of ExecutionRepository.
type MockExecutionRepo struct {
	mock.Mock
}

func (m *MockExecutionRepo) UpdateAction(ctx context.Context, executionID, action string) error {
	args := m.Called(ctx, executionID, action)
	return args.Error(0)
}

// MockPipelineRepo is a mock of PipelineRepository.
type MockPipelineRepo struct {
	mock.Mock
}

func (m *MockPipelineRepo) UpdateVariables(ctx context.Context, pipelineID string, variables map[string]interface{}) error {
	args := m.Called(ctx, pipelineID, variables)
	return args.Error(0)
}

// MockMetricsSource is a mock of MetricsSource.
type MockMetricsSource struct {
	mock.Mock
}

func (m *MockMetricsSource) ListTrainingSamples(ctx context.Context, modelID string) ([]domain.MetricSample, error) {
	args := m.Called(ctx, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MetricSample), args.Error(1)
}

func (m *MockMetricsSource) ListItemScores(ctx context.Context, datasetID, modelID string) ([]domain.ItemScore, error) {
	args := m.Called(ctx, datasetID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ItemScore), args.Error(1)
}

func (m *MockMetricsSource) ListMetricRows(ctx context.Context, datasetID, modelID string) ([]domain.MetricRow, error) {
	args := m.Called(ctx, datasetID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MetricRow), args.Error(1)
}

// MockAdapterBuilder is a mock of AdapterBuilder.
type MockAdapterBuilder struct {
	mock.Mock
}

func (m *MockAdapterBuilder) Build(ctx context.Context, model *domain.Model) (ports.ModelAdapter, error) {
	args := m.Called(ctx, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.ModelAdapter), args.Error(1)
}

func (m *MockAdapterBuilder) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockModelAdapter is a mock of ModelAdapter.
type MockModelAdapter struct {
	mock.Mock
}

func (m *MockModelAdapter) PredictItems(ctx context.Context, items []*domain.Item, opts ports.PredictOptions) ([]ports.Prediction, error) {
	args := m.Called(ctx, items, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, []*domain.Item, ports.PredictOptions) []ports.Prediction); ok {
		return fn(ctx, items, opts), args.Error(1)
	}
	return args.Get(0).([]ports.Prediction), args.Error(1)
}

// MockNodeRunRepo is a mock of NodeRunRepository.
type MockNodeRunRepo struct {
	mock.Mock
}

func (m *MockNodeRunRepo) Create(ctx context.Context, run *domain.NodeRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockNodeRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NodeRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NodeRun), args.Error(1)
}

func (m *MockNodeRunRepo) List(ctx context.Context, filter ports.NodeRunListFilter) ([]*domain.NodeRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.NodeRun), args.Int(1), args.Error(2)
}
