package tenantconfig

import (
	"github.com/smallbiznis/imobi360/internal/tenantconfig/cache"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/repository"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenantconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.New),
	fx.Provide(service.New),
)
