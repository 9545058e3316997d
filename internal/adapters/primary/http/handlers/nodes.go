package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/adapters/primary/http/dto"
)

// ============================================================================
// Pipeline Nodes
// ============================================================================

func (h *Handler) CreateModel(c *gin.Context) {
	var req dto.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.createModelSvc.CreateModel(c.Request.Context(), req.ToService())
	if err != nil {
		log.WithError(err).WithField("execution_id", req.Context.ExecutionID).Error("create model node failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCreateModelResponse(res))
}

func (h *Handler) DataSplit(c *gin.Context) {
	var req dto.DataSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.dataSplitSvc.Split(c.Request.Context(), req.ItemID, req.Context.ToDomain())
	if err != nil {
		log.WithError(err).WithField("item_id", req.ItemID).Error("data split node failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DataSplitResponse{Item: res.Item, Action: res.Action})
}

func (h *Handler) CompareModels(c *gin.Context) {
	var req dto.CompareModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.compareSvc.Compare(c.Request.Context(), req.ToService())
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"previous_model_id": req.PreviousModelID,
			"new_model_id":      req.NewModelID,
		}).Error("compare models node failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompareModelsResponse(out))
}

func (h *Handler) PredictItems(c *gin.Context) {
	var req dto.PredictItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.predictionSvc.PredictItems(c.Request.Context(), req.ToService())
	if err != nil {
		log.WithError(err).WithField("model_id", req.ModelID).Error("predict items node failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictItemsResponse(res))
}
