package lead

import (
	"github.com/smallbiznis/imobi360/internal/lead/repository"
	"github.com/smallbiznis/imobi360/internal/lead/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
