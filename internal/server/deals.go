package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/actionfield"
	dealdomain "github.com/smallbiznis/imobi360/internal/deal/domain"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/record"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
)

func (s *Server) CreateDeal(c *gin.Context) {
	var req dealdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	resp, err := s.dealSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDeals(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PipelineID string `form:"pipeline_id"`
		StageID    string `form:"stage_id"`
		ContactID  string `form:"contact_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pipelineID, err := parseOptionalSnowflakeID(query.PipelineID)
	if err != nil {
		AbortWithError(c, newValidationError("pipeline_id", "invalid_pipeline_id", "invalid pipeline_id"))
		return
	}
	stageID, err := parseOptionalSnowflakeID(query.StageID)
	if err != nil {
		AbortWithError(c, newValidationError("stage_id", "invalid_stage_id", "invalid stage_id"))
		return
	}
	contactID, err := parseOptionalSnowflakeID(query.ContactID)
	if err != nil {
		AbortWithError(c, newValidationError("contact_id", "invalid_contact_id", "invalid contact_id"))
		return
	}

	resp, err := s.dealSvc.List(c.Request.Context(), dealdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		PipelineID: pipelineID,
		StageID:    stageID,
		ContactID:  contactID,
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Deals, "page_info": resp.PageInfo})
}

func (s *Server) GetDeal(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.dealSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDeal(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dealSvc.Update(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type moveStageRequest struct {
	StageID snowflake.ID `json:"stage_id"`
}

func (s *Server) MoveDealStage(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req moveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StageID == 0 {
		AbortWithError(c, newValidationError("stage_id", "invalid_stage_id", "stage_id is required"))
		return
	}

	resp, err := s.dealSvc.MoveStage(c.Request.Context(), id, req.StageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDeal(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.dealSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type bulkDeleteRequest struct {
	IDs []snowflake.ID `json:"ids"`
}

// BulkDeleteDeals deletes every listed deal and reports which ids failed.
func (s *Server) BulkDeleteDeals(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "ids are required"))
		return
	}

	ctx := c.Request.Context()
	deleted := make([]string, 0, len(req.IDs))
	failed := map[string]string{}
	for _, id := range req.IDs {
		if err := s.dealSvc.Delete(ctx, id); err != nil {
			_, payload := mapError(err)
			failed[id.String()] = payload.Type
			continue
		}
		deleted = append(deleted, id.String())
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "failed": failed})
}

func (s *Server) ExecuteDealAction(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deal, err := s.dealSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rec, err := record.FromStruct(deal)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.executeAction(c, permission.EntityDeal, id, rec)
}

func (s *Server) executeAction(c *gin.Context, entityType string, id snowflake.ID, rec map[string]any) {
	fieldName := strings.TrimSpace(c.Param("field"))
	if fieldName == "" {
		AbortWithError(c, newValidationError("field", "invalid_field", "field is required"))
		return
	}

	resp, err := s.actions.Execute(c.Request.Context(), actionfield.Request{
		EntityType: entityType,
		EntityID:   id,
		FieldName:  fieldName,
		Record:     rec,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}
