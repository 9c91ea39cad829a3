package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrTenantNotFound   = errors.New("tenant_not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidTemplate  = errors.New("invalid_template")
	ErrTemplateNotFound = errors.New("template_not_found")
	ErrSlugTaken        = errors.New("slug_taken")
	ErrInvalidOverrides = errors.New("invalid_overrides")
)

// ConfigurationError reports a tenant whose configuration cannot be served.
// The problems are for logs; clients only see a generic message.
type ConfigurationError struct {
	TenantID string
	Problems []string
	Cause    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid tenant configuration for %s", e.TenantID)
	if len(e.Problems) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
