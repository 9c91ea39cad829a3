package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetKanban returns the board of ?pipeline_id, or of the default deal
// pipeline when the parameter is absent.
func (s *Server) GetKanban(c *gin.Context) {
	pipelineID, err := parseOptionalSnowflakeID(c.Query("pipeline_id"))
	if err != nil {
		AbortWithError(c, newValidationError("pipeline_id", "invalid_pipeline_id", "invalid pipeline_id"))
		return
	}

	board, err := s.dealSvc.Board(c.Request.Context(), pipelineID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": board})
}
