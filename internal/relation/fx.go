package relation

import "go.uber.org/fx"

var Module = fx.Module("relation.resolver",
	fx.Provide(NewResolver),
)
