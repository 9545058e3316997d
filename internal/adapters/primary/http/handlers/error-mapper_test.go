package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ml-pipeline-nodes/internal/core/domain"
)

func TestMapDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidNodeConfig, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrNoGroups), http.StatusBadRequest},
		{domain.ErrPreModelMismatch, http.StatusBadRequest},
		{fmt.Errorf("get model: %w", domain.ErrModelNotFound), http.StatusNotFound},
		{domain.ErrInferenceServiceMissing, http.StatusNotFound},
		{domain.ErrCloneAttemptsExhausted, http.StatusConflict},
		{domain.ErrPlatformRequest, http.StatusBadGateway},
		{domain.ErrPredictionFailed, http.StatusBadGateway},
		{domain.ErrInferenceServiceNotReady, http.StatusServiceUnavailable},
		{domain.ErrJournalDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			mapDomainError(c, tt.err)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
