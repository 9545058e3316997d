package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ml-pipeline-nodes/internal/adapters/primary/http/dto"
	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

func (h *Handler) ListRuns(c *gin.Context) {
	var q dto.ListRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nodeType := domain.NodeType(q.NodeType)
	if nodeType != "" && !nodeType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node_type"})
		return
	}

	runs, total, err := h.runSvc.List(c.Request.Context(), ports.NodeRunListFilter{
		NodeType:    nodeType,
		PipelineID:  q.PipelineID,
		ExecutionID: q.ExecutionID,
		Action:      q.Action,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.NodeRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToNodeRunResponse(run))
	}

	c.JSON(http.StatusOK, dto.ListNodeRunsResponse{
		Items: items,
		Total: total,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNodeRunResponse(run))
}
