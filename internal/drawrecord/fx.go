package drawrecord

import (
	"github.com/smallbiznis/lottery/internal/drawrecord/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("drawrecord.ledger",
	fx.Provide(repository.Provide),
)
