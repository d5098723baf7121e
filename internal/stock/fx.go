package stock

import (
	"github.com/smallbiznis/lottery/internal/stock/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("stock.ledger",
	fx.Provide(repository.Provide),
)
