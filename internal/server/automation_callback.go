package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/automation"
	"go.uber.org/zap"
)

const maxCallbackBody = 1 << 20

// AutomationCallback accepts run reports from the automation runner. The body
// must be signed with the shared webhook secret.
func (s *Server) AutomationCallback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cb, err := s.automation.ParseCallback(body, c.GetHeader(automation.HeaderSignature))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("automation callback received",
		zap.String("event_id", cb.EventID),
		zap.String("status", cb.Status),
		zap.String("workflow_id", cb.WorkflowID),
	)

	c.JSON(http.StatusOK, gin.H{"received": true})
}
