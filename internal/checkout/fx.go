package checkout

import (
	"github.com/smallbiznis/storefront/internal/checkout/repository"
	"github.com/smallbiznis/storefront/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
