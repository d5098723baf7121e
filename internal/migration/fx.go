package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lottery/internal/clock"
	"github.com/smallbiznis/lottery/internal/config"
	"github.com/smallbiznis/lottery/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}

		if cfg.IsProduction() || !cfg.Bootstrap.SeedDemoData {
			return nil
		}

		result, err := seed.EnsureDemoData(context.Background(), conn, genID, clk.Now())
		if err != nil {
			return err
		}
		log.Named("seed").Info("demo data ready",
			zap.String("activity_id", result.ActivityID.String()),
			zap.String("activity_code", result.ActivityCode),
			zap.Int("users", len(result.UserIDs)),
		)
		return nil
	}),
)
