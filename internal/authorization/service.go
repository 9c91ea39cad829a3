package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/imobi360/internal/permission"
)

type Service interface {
	// Authorize checks whether role may perform action on object.
	Authorize(ctx context.Context, role permission.Role, object string, action string) error
}

var (
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
