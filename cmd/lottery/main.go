package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lottery/internal/clock"
	"github.com/smallbiznis/lottery/internal/config"
	"github.com/smallbiznis/lottery/internal/migration"
	"github.com/smallbiznis/lottery/internal/observability"
	"github.com/smallbiznis/lottery/internal/server"
	"github.com/smallbiznis/lottery/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Draw engine and HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
