package quota

import (
	"github.com/smallbiznis/lottery/internal/quota/repository"
	"github.com/smallbiznis/lottery/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.tracker",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
