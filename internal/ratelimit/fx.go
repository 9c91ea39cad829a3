package ratelimit

import "go.uber.org/fx"

// Module provides the Redis lock and token bucket. Both resolve to nil when
// the cache module has Redis disabled.
var Module = fx.Module("ratelimit",
	fx.Provide(NewLocker, NewTokenBucket),
)
