package template

import "go.uber.org/fx"

var Module = fx.Module("template.registry",
	fx.Provide(NewRegistry),
)
