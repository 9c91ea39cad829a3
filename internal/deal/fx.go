package deal

import (
	"github.com/smallbiznis/imobi360/internal/deal/repository"
	"github.com/smallbiznis/imobi360/internal/deal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
