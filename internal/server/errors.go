package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/access"
	"github.com/smallbiznis/imobi360/internal/actionfield"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/automation"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	dealdomain "github.com/smallbiznis/imobi360/internal/deal/domain"
	leaddomain "github.com/smallbiznis/imobi360/internal/lead/domain"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/observability/logger"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type            string            `json:"type"`
	Message         string            `json:"message"`
	Code            string            `json:"code,omitempty"`
	Errors          []ValidationError `json:"errors,omitempty"`
	ForbiddenFields []string          `json:"forbidden_fields,omitempty"`
	Reasons         map[string]string `json:"reasons,omitempty"`
	ComputedFields  []string          `json:"computed_fields,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingTenant      = errors.New("missing_tenant")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("error_type", payload.Type),
				zap.Error(lastErr.Err),
			)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var cfgErr *tenantdomain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "tenant configuration is invalid, please contact support",
		}
	}

	var mismatch *mutationguard.TenantMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusForbidden, errorPayload{
			Type:    "tenant_mismatch",
			Message: "cannot change tenant_id",
		}
	}

	var permErr *mutationguard.PermissionError
	if errors.As(err, &permErr) {
		return http.StatusForbidden, errorPayload{
			Type:            "forbidden",
			Message:         "insufficient permissions to modify fields",
			ForbiddenFields: permErr.Fields,
			Reasons:         permErr.Reasons,
		}
	}

	var computedErr *mutationguard.ComputedFieldWriteError
	if errors.As(err, &computedErr) {
		return http.StatusForbidden, errorPayload{
			Type:           "computed_field_write",
			Message:        "computed fields are read-only",
			ComputedFields: computedErr.Fields,
		}
	}

	var accessErr *access.Error
	if errors.As(err, &accessErr) {
		return http.StatusForbidden, errorPayload{
			Type:    "module_access_denied",
			Message: accessErr.Message,
			Code:    string(accessErr.Code),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrMissingTenant),
		isTenantContextError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing tenant context",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, automation.ErrMissingSignature),
		errors.Is(err, automation.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, cfdomain.ErrFieldNameTaken),
		errors.Is(err, tenantdomain.ErrSlugTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Code:    err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, automation.ErrSecretNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" && status < http.StatusInternalServerError {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, automation.ErrInvalidCallback):
		return true
	case isDealValidationError(err),
		isLeadValidationError(err),
		isCustomFieldValidationError(err),
		isTenantConfigValidationError(err),
		isAuditValidationError(err),
		errors.Is(err, actionfield.ErrNotActionField):
		return true
	default:
		return false
	}
}

func isTenantContextError(err error) bool {
	switch {
	case errors.Is(err, dealdomain.ErrInvalidTenant),
		errors.Is(err, leaddomain.ErrInvalidTenant),
		errors.Is(err, cfdomain.ErrInvalidTenant),
		errors.Is(err, tenantdomain.ErrInvalidTenant),
		errors.Is(err, auditdomain.ErrInvalidTenant),
		errors.Is(err, actionfield.ErrInvalidTenant):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, dealdomain.ErrNotFound),
		errors.Is(err, leaddomain.ErrNotFound),
		errors.Is(err, cfdomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, pipelinedomain.ErrPipelineNotFound),
		errors.Is(err, pipelinedomain.ErrStageNotFound),
		errors.Is(err, actionfield.ErrFieldNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isDealValidationError(err error) bool {
	switch {
	case errors.Is(err, dealdomain.ErrInvalidTitle),
		errors.Is(err, dealdomain.ErrInvalidStatus),
		errors.Is(err, dealdomain.ErrInvalidValue),
		errors.Is(err, dealdomain.ErrInvalidCloseDate),
		errors.Is(err, dealdomain.ErrInvalidClosedAt),
		errors.Is(err, dealdomain.ErrInvalidCustomFields),
		errors.Is(err, dealdomain.ErrInvalidPipeline),
		errors.Is(err, dealdomain.ErrInvalidStage),
		errors.Is(err, dealdomain.ErrStageNotInPipeline),
		errors.Is(err, dealdomain.ErrStatusFromStage),
		errors.Is(err, dealdomain.ErrNoDefaultPipeline),
		errors.Is(err, dealdomain.ErrPipelineHasNoStages),
		errors.Is(err, dealdomain.ErrContactNotFound),
		errors.Is(err, dealdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isLeadValidationError(err error) bool {
	switch {
	case errors.Is(err, leaddomain.ErrInvalidName),
		errors.Is(err, leaddomain.ErrInvalidStatus),
		errors.Is(err, leaddomain.ErrInvalidValue),
		errors.Is(err, leaddomain.ErrInvalidCustomFields),
		errors.Is(err, leaddomain.ErrInvalidPageToken),
		errors.Is(err, leaddomain.ErrTypeImmutable):
		return true
	default:
		return false
	}
}

func isCustomFieldValidationError(err error) bool {
	switch {
	case errors.Is(err, cfdomain.ErrInvalidEntityType),
		errors.Is(err, cfdomain.ErrInvalidFieldLabel),
		errors.Is(err, cfdomain.ErrInvalidFieldName),
		errors.Is(err, cfdomain.ErrInvalidFieldType),
		errors.Is(err, cfdomain.ErrInvalidFormulaConfig),
		errors.Is(err, cfdomain.ErrInvalidRelationConfig),
		errors.Is(err, cfdomain.ErrInvalidActionConfig):
		return true
	default:
		return false
	}
}

func isTenantConfigValidationError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidTemplate),
		errors.Is(err, tenantdomain.ErrTemplateNotFound),
		errors.Is(err, tenantdomain.ErrInvalidOverrides):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidEntityType):
		return true
	default:
		return false
	}
}

// validationErrorCode returns the sentinel code of err. Wrapped sentinels
// carry detail after a colon; only the sentinel part is exposed.
func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	code := err.Error()
	if idx := strings.Index(code, ":"); idx > 0 {
		code = code[:idx]
	}
	return code
}

var validationFields = map[string]string{
	"invalid_request":          "request",
	"stage_not_in_pipeline":    "stage_id",
	"no_default_pipeline":      "pipeline_id",
	"pipeline_has_no_stages":   "pipeline_id",
	"lead_type_immutable":      "type",
	"template_not_found":       "template_id",
	"not_action_field":         "field",
	"invalid_formula_config":   "options",
	"invalid_relation_config":  "options",
	"invalid_action_config":    "options",
	"invalid_callback_payload": "body",
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

var validationMessages = map[string]string{
	"invalid_request":        "invalid request",
	"stage_not_in_pipeline":  "stage does not belong to the deal pipeline",
	"no_default_pipeline":    "no default pipeline is configured",
	"pipeline_has_no_stages": "pipeline has no stages",
	"lead_type_immutable":    "lead type cannot be changed",
	"template_not_found":     "template does not exist",
	"invalid_contact_id":     "contact does not exist",
	"not_action_field":       "field is not an action field",
}

func validationErrorMessage(code string) string {
	if msg, ok := validationMessages[code]; ok {
		return msg
	}
	return "invalid value"
}
