package audit

import (
	"github.com/smallbiznis/imobi360/internal/audit/repository"
	"github.com/smallbiznis/imobi360/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit log and timeline service. Event history is read
// through the event module, which must be in the same graph.
var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
