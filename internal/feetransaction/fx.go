package feetransaction

import (
	"context"

	"github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"github.com/smallbiznis/bursar/internal/feetransaction/repository"
	"github.com/smallbiznis/bursar/internal/feetransaction/service"
	"github.com/smallbiznis/bursar/internal/migration"
	"go.uber.org/fx"
)

var Module = fx.Module("feetransaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(healOnStart),
)

// healOnStart moves the serial counter past serials loaded outside the allocator.
func healOnStart(lc fx.Lifecycle, _ migration.Applied, svc domain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.HealSerials(ctx)
		},
	})
}
