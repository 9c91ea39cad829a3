package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/deal/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
	"github.com/smallbiznis/imobi360/internal/record"
	"github.com/smallbiznis/imobi360/pkg/rls"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// decodePatch turns an accepted update payload into column values. Keys that
// are not deal columns are ignored.
func (s *Service) decodePatch(ctx context.Context, tenantID snowflake.ID, patch map[string]any) (map[string]any, error) {
	changes := map[string]any{}
	for key, raw := range patch {
		switch key {
		case "title":
			title, ok := raw.(string)
			if !ok || strings.TrimSpace(title) == "" {
				return nil, domain.ErrInvalidTitle
			}
			changes[key] = strings.TrimSpace(title)
		case "value":
			value, err := record.ParseOptionalFloat(raw)
			if err != nil {
				return nil, domain.ErrInvalidValue
			}
			changes[key] = value
		case "pipeline_id":
			id, err := record.ParseID(raw)
			if err != nil {
				return nil, domain.ErrInvalidPipeline
			}
			changes[key] = id
		case "stage_id":
			id, err := record.ParseID(raw)
			if err != nil {
				return nil, domain.ErrInvalidStage
			}
			changes[key] = id
		case "contact_id":
			id, err := record.ParseOptionalID(raw)
			if err != nil {
				return nil, domain.ErrContactNotFound
			}
			if id != nil {
				if err := s.verifyContact(ctx, tenantID, *id); err != nil {
					return nil, err
				}
			}
			changes[key] = id
		case "status":
			status, _ := raw.(string)
			status = strings.TrimSpace(status)
			if !domain.ValidStatus(status) {
				return nil, domain.ErrInvalidStatus
			}
			changes[key] = status
		case "assigned_to":
			assignee, err := record.ParseOptionalString(raw)
			if err != nil {
				return nil, domain.ErrInvalidValue
			}
			changes[key] = assignee
		case "expected_close_date":
			date, err := record.ParseOptionalTime(raw)
			if err != nil {
				return nil, domain.ErrInvalidCloseDate
			}
			changes[key] = date
		case "closed_at":
			closedAt, err := record.ParseOptionalTime(raw)
			if err != nil {
				return nil, domain.ErrInvalidClosedAt
			}
			changes[key] = closedAt
		case "custom_fields":
			fields, err := record.ParseObject(raw)
			if err != nil {
				return nil, domain.ErrInvalidCustomFields
			}
			changes[key] = datatypes.JSONMap(fields)
		}
	}
	return changes, nil
}

// apply enforces the stage transition rules on changes, persists them and
// emits the matching events.
//
// A stage must belong to the deal's target pipeline. Moving to another
// pipeline without a new stage lands on that pipeline's first stage. Entering
// a won or lost stage forces the status and stamps closed_at.
func (s *Service) apply(ctx context.Context, tenantID snowflake.ID, current *domain.Deal, changes map[string]any) (*domain.Deal, error) {
	now := s.clock.Now()

	targetPipeline := current.PipelineID
	if id, ok := changes["pipeline_id"].(snowflake.ID); ok {
		targetPipeline = id
	}

	var nextStage *pipelinedomain.Stage
	if id, ok := changes["stage_id"].(snowflake.ID); ok && id != current.StageID {
		stage, err := s.stage(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if stage.PipelineID != targetPipeline {
			return nil, domain.ErrStageNotInPipeline
		}
		nextStage = stage
	}

	if targetPipeline != current.PipelineID {
		if _, err := s.pipelines.Get(ctx, tenantID, targetPipeline); err != nil {
			if errors.Is(err, pipelinedomain.ErrPipelineNotFound) {
				return nil, domain.ErrInvalidPipeline
			}
			return nil, err
		}
		if nextStage == nil {
			first, err := s.firstStage(ctx, tenantID, targetPipeline)
			if err != nil {
				return nil, err
			}
			changes["stage_id"] = first.ID
			nextStage = first
		}
	}

	if nextStage != nil {
		if want, terminal := terminalStatus(nextStage); terminal {
			_, explicitClose := changes["closed_at"]
			if changes["status"] != want || !explicitClose {
				changes["closed_at"] = &now
			}
			changes["status"] = want
		}
	}

	updatedFields := make([]string, 0, len(changes))
	for key := range changes {
		updatedFields = append(updatedFields, key)
	}
	sort.Strings(updatedFields)

	changes["updated_at"] = now
	if err := rls.Transaction(s.db, tenantID, func(tx *gorm.DB) error {
		return s.repo.Update(ctx, tx, tenantID, current.ID, changes)
	}); err != nil {
		return nil, err
	}

	updated, err := s.find(ctx, tenantID, current.ID)
	if err != nil {
		return nil, err
	}

	emitted := false
	if nextStage != nil {
		fromName := ""
		if from, err := s.pipelines.Stage(ctx, tenantID, current.StageID); err == nil {
			fromName = from.Name
		}
		s.emit(ctx, tenantID, current.ID, eventdomain.TypeStageChanged, map[string]any{
			"from_stage_id":   current.StageID.String(),
			"to_stage_id":     nextStage.ID.String(),
			"from_stage_name": fromName,
			"to_stage_name":   nextStage.Name,
		})
		emitted = true
	}
	if status, ok := changes["status"].(string); ok && status != current.Status {
		s.emit(ctx, tenantID, current.ID, eventdomain.TypeStatusChanged, map[string]any{
			"from_status": current.Status,
			"to_status":   status,
		})
		emitted = true
	}
	if !emitted {
		s.emit(ctx, tenantID, current.ID, eventdomain.TypeUpdated, map[string]any{
			"updated_fields": updatedFields,
		})
	}

	s.attachComputed(ctx, updated)
	return updated, nil
}
