package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/checkout"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/customer"
	"github.com/smallbiznis/storefront/internal/migration"
	"github.com/smallbiznis/storefront/internal/notify"
	"github.com/smallbiznis/storefront/internal/observability"
	"github.com/smallbiznis/storefront/internal/order"
	"github.com/smallbiznis/storefront/internal/payment"
	"github.com/smallbiznis/storefront/internal/scheduler"
	"github.com/smallbiznis/storefront/internal/server"
	"github.com/smallbiznis/storefront/internal/webhook"
	"github.com/smallbiznis/storefront/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		customer.Module,
		checkout.Module,
		notify.Module,
		order.Module,
		payment.Module,
		webhook.Module,
		scheduler.Module,

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
