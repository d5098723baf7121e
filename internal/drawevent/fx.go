package drawevent

import (
	"context"

	"github.com/smallbiznis/lottery/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("draw.event",
	fx.Provide(New),
)

// New returns a Kafka publisher when brokers are configured, otherwise a no-op.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		log.Named("draw.event").Info("draw events disabled; no kafka brokers configured")
		return NopPublisher{}
	}

	publisher := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	log.Named("draw.event").Info("draw events enabled",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return publisher
}
