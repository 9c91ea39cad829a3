package mutationguard

import "go.uber.org/fx"

var Module = fx.Module("mutationguard",
	fx.Provide(NewGuard),
)
