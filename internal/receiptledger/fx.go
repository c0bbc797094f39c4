package receiptledger

import (
	"github.com/smallbiznis/bursar/internal/receiptledger/repository"
	"github.com/smallbiznis/bursar/internal/receiptledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receiptledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
