package formula

import "go.uber.org/fx"

var Module = fx.Module("formula.resolver",
	fx.Provide(NewResolver),
)
