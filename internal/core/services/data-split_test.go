package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ml-pipeline-nodes/internal/core/domain"
	"ml-pipeline-nodes/internal/testutil"
)

func newDataSplitFixture(draw int) (*DataSplitService, *testutil.MockItemRepo, *testutil.MockExecutionRepo) {
	items := new(testutil.MockItemRepo)
	executions := new(testutil.MockExecutionRepo)
	svc := NewDataSplitService(items, executions, NewNodeRunService(nil), nil)
	svc.intN = func(n int) int { return draw }
	return svc, items, executions
}

func splitContext(cfg map[string]interface{}) domain.NodeContext {
	return domain.NodeContext{
		NodeID:       "node-1",
		ExecutionID:  "exec-1",
		NodeMetadata: domain.Metadata{"customNodeConfig": cfg},
	}
}

func threeGroups() []interface{} {
	return []interface{}{
		map[string]interface{}{"name": "train", "distribution": float64(80)},
		map[string]interface{}{"name": "validation", "distribution": "10"},
		map[string]interface{}{"name": "test", "distribution": 10},
	}
}

func TestDataSplitService_PicksByWeight(t *testing.T) {
	tests := []struct {
		draw     int
		expected string
	}{
		{draw: 0, expected: "train"},
		{draw: 79, expected: "train"},
		{draw: 80, expected: "validation"},
		{draw: 89, expected: "validation"},
		{draw: 90, expected: "test"},
		{draw: 99, expected: "test"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			svc, items, executions := newDataSplitFixture(tt.draw)
			item := &domain.Item{ID: "item-1"}
			items.On("GetByID", mock.Anything, "item-1").Return(item, nil)
			executions.On("UpdateAction", mock.Anything, "exec-1", tt.expected).Return(nil)

			result, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{
				"groups":             threeGroups(),
				"clearModelMetadata": []interface{}{},
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Action)
			executions.AssertExpectations(t)
			items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDataSplitService_ZeroWeightGroupNeverPicked(t *testing.T) {
	svc, items, executions := newDataSplitFixture(0)
	items.On("GetByID", mock.Anything, "item-1").Return(&domain.Item{ID: "item-1"}, nil)
	executions.On("UpdateAction", mock.Anything, "exec-1", "b").Return(nil)

	result, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{
		"groups": []interface{}{
			map[string]interface{}{"name": "a", "distribution": 0},
			map[string]interface{}{"name": "b", "distribution": 1},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, "b", result.Action)
}

func TestDataSplitService_TagsItem(t *testing.T) {
	svc, items, executions := newDataSplitFixture(85)
	item := &domain.Item{ID: "item-1"}
	items.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	executions.On("UpdateAction", mock.Anything, "exec-1", "validation").Return(nil)
	items.On("Update", mock.Anything, mock.MatchedBy(func(i *domain.Item) bool {
		tags := i.Metadata.LookupMap("system", "tags")
		return tags != nil && tags["validation"] == true
	}), true).Return(item, nil)

	_, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{
		"groups":       threeGroups(),
		"itemMetadata": true,
	}))
	require.NoError(t, err)
	items.AssertExpectations(t)
}

func TestDataSplitService_ClearsStaleModelMetadata(t *testing.T) {
	svc, items, executions := newDataSplitFixture(0)
	item := &domain.Item{
		ID: "item-1",
		Metadata: domain.Metadata{
			"system": map[string]interface{}{"model": map[string]interface{}{"name": "old"}, "mimetype": "image/png"},
			"user":   map[string]interface{}{"model": "old"},
		},
	}
	items.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	executions.On("UpdateAction", mock.Anything, "exec-1", "train").Return(nil)
	items.On("Update", mock.Anything, mock.Anything, true).Return(item, nil)

	_, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{"groups": threeGroups()}))
	require.NoError(t, err)

	_, hasSystemModel := item.Metadata.Lookup("system", "model")
	_, hasUserModel := item.Metadata.Lookup("user", "model")
	_, hasMime := item.Metadata.Lookup("system", "mimetype")
	assert.False(t, hasSystemModel)
	assert.False(t, hasUserModel)
	assert.True(t, hasMime)
	items.AssertNumberOfCalls(t, "Update", 1)
}

func TestDataSplitService_TestGroupKeepsModelMetadata(t *testing.T) {
	svc, items, executions := newDataSplitFixture(95)
	item := &domain.Item{ID: "item-1", Metadata: domain.Metadata{"user": map[string]interface{}{"model": "old"}}}
	items.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	executions.On("UpdateAction", mock.Anything, "exec-1", "test").Return(nil)

	_, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{"groups": threeGroups()}))
	require.NoError(t, err)

	_, hasUserModel := item.Metadata.Lookup("user", "model")
	assert.True(t, hasUserModel)
	items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDataSplitService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		ctx      domain.NodeContext
		expected error
	}{
		{
			name:     "missing custom config",
			ctx:      domain.NodeContext{},
			expected: domain.ErrInvalidNodeConfig,
		},
		{
			name:     "no groups",
			ctx:      splitContext(map[string]interface{}{"groups": []interface{}{}}),
			expected: domain.ErrNoGroups,
		},
		{
			name: "unnamed group",
			ctx: splitContext(map[string]interface{}{"groups": []interface{}{
				map[string]interface{}{"name": "", "distribution": 1},
			}}),
			expected: domain.ErrInvalidGroupName,
		},
		{
			name: "all weights zero",
			ctx: splitContext(map[string]interface{}{"groups": []interface{}{
				map[string]interface{}{"name": "a", "distribution": 0},
			}}),
			expected: domain.ErrInvalidDistribution,
		},
		{
			name: "negative weight",
			ctx: splitContext(map[string]interface{}{"groups": []interface{}{
				map[string]interface{}{"name": "a", "distribution": -5},
				map[string]interface{}{"name": "b", "distribution": 10},
			}}),
			expected: domain.ErrInvalidDistribution,
		},
		{
			name: "non numeric weight",
			ctx: splitContext(map[string]interface{}{"groups": []interface{}{
				map[string]interface{}{"name": "a", "distribution": "half"},
			}}),
			expected: domain.ErrInvalidNodeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, items, _ := newDataSplitFixture(0)
			_, err := svc.Split(context.Background(), "item-1", tt.ctx)
			assert.ErrorIs(t, err, tt.expected)
			items.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestDataSplitService_MissingItem(t *testing.T) {
	svc, _, _ := newDataSplitFixture(0)
	_, err := svc.Split(context.Background(), "", splitContext(map[string]interface{}{"groups": threeGroups()}))
	assert.ErrorIs(t, err, domain.ErrItemRequired)
}

func TestDataSplitService_ActionUpdateFails(t *testing.T) {
	svc, items, executions := newDataSplitFixture(0)
	items.On("GetByID", mock.Anything, "item-1").Return(&domain.Item{ID: "item-1"}, nil)
	executions.On("UpdateAction", mock.Anything, "exec-1", "train").Return(errors.New("gone"))

	_, err := svc.Split(context.Background(), "item-1", splitContext(map[string]interface{}{"groups": threeGroups()}))
	assert.Error(t, err)
}
