package order

import (
	"github.com/smallbiznis/storefront/internal/order/repository"
	"github.com/smallbiznis/storefront/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.reconciler",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
