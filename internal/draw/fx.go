package draw

import (
	"github.com/smallbiznis/lottery/internal/draw/service"
	"github.com/smallbiznis/lottery/internal/selector"
	"go.uber.org/fx"
)

var Module = fx.Module("draw.service",
	fx.Provide(selector.Provide),
	fx.Provide(service.New),
)
