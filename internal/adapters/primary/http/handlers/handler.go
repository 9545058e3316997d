package handlers

import (
	"github.com/gin-gonic/gin"

	"ml-pipeline-nodes/internal/core/services"
)

type Handler struct {
	createModelSvc *services.CreateModelService
	dataSplitSvc   *services.DataSplitService
	compareSvc     *services.ModelCompareService
	predictionSvc  *services.PredictionService
	runSvc         *services.NodeRunService
}

func New(
	createModelSvc *services.CreateModelService,
	dataSplitSvc *services.DataSplitService,
	compareSvc *services.ModelCompareService,
	predictionSvc *services.PredictionService,
	runSvc *services.NodeRunService,
) *Handler {
	return &Handler{
		createModelSvc: createModelSvc,
		dataSplitSvc:   dataSplitSvc,
		compareSvc:     compareSvc,
		predictionSvc:  predictionSvc,
		runSvc:         runSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Pipeline nodes
	r.POST("/nodes/create-model", h.CreateModel)
	r.POST("/nodes/data-split", h.DataSplit)
	r.POST("/nodes/compare-models", h.CompareModels)
	r.POST("/nodes/predict-items", h.PredictItems)

	// Node run journal
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
}
