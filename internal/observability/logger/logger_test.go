package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/imobi360/internal/observability/context"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRequestScope(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := context.Background()
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = tenantcontext.WithTenantID(ctx, snowflake.ID(42))
	ctx = tenantcontext.WithRole(ctx, permission.RoleManager)
	ctx = tenantcontext.WithUserID(ctx, "user-7")

	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["tenant_id"])
	assert.Equal(t, "manager", fields["role"])
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestGinMiddlewareWritesRequestLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "validation_error", "invalid_title" },
	}))
	r.POST("/api/deals", func(c *gin.Context) {
		_ = c.Error(errors.New("bad title"))
		c.Status(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/deals", nil)
	req.Header.Set(HeaderRequestID, "req-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-9", rec.Header().Get(HeaderRequestID))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "/api/deals", fields["route"])
	assert.Equal(t, "deal", fields["entity_type"])
	assert.Equal(t, "invalid_title", fields["error_code"])
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK, ""))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/deals", http.StatusInternalServerError, "internal_error"))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/api/deals", http.StatusBadRequest, "validation_error"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/deals", http.StatusForbidden, "forbidden"))
}

func TestDescribeStatement(t *testing.T) {
	stmt := describeStatement(`SELECT * FROM "deals" WHERE tenant_id = $1`)
	assert.Equal(t, "SELECT", stmt.operation)
	assert.Equal(t, "deals", stmt.table)

	stmt = describeStatement("INSERT INTO `audit_logs` (`id`) VALUES (?)")
	assert.Equal(t, "INSERT", stmt.operation)
	assert.Equal(t, "audit_logs", stmt.table)

	assert.Equal(t, "UNKNOWN", describeStatement("BEGIN").operation)
}
