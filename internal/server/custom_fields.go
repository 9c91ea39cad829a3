package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
)

func (s *Server) ListCustomFields(c *gin.Context) {
	entityType := strings.TrimSpace(c.Query("entity_type"))
	if entityType == "" {
		AbortWithError(c, newValidationError("entity_type", "invalid_entity_type", "entity_type is required"))
		return
	}

	resp, err := s.customFieldSvc.List(c.Request.Context(), entityType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCustomField(c *gin.Context) {
	var req cfdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.EntityType = strings.TrimSpace(req.EntityType)
	req.FieldLabel = strings.TrimSpace(req.FieldLabel)

	resp, err := s.customFieldSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteCustomField(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.customFieldSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
