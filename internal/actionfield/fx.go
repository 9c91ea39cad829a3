package actionfield

import "go.uber.org/fx"

var Module = fx.Module("actionfield.executor",
	fx.Provide(NewExecutor),
)
