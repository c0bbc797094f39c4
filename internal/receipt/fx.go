package receipt

import "go.uber.org/fx"

var Module = fx.Module("receipt.service",
	fx.Provide(NewRedisClient),
	fx.Provide(NewCache),
	fx.Provide(NewRenderer),
	fx.Provide(New),
)
