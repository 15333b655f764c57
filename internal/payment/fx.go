package payment

import (
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/internal/payment/gateways/atlaspay"
	"github.com/smallbiznis/storefront/internal/payment/gateways/nexopay"
	"github.com/smallbiznis/storefront/internal/payment/repository"
	"github.com/smallbiznis/storefront/internal/payment/service"
	"go.uber.org/fx"
)

// AtlasPay is the primary processor; NexoPay takes the cascade.
var Module = fx.Module("payment.cascade",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(providePrimary, fx.ResultTags(`name:"gateway_primary"`)),
		fx.Annotate(provideSecondary, fx.ResultTags(`name:"gateway_secondary"`)),
	),
	fx.Provide(service.New),
)

func providePrimary(cfg config.Config) domain.Gateway {
	return atlaspay.New(atlaspay.Config{
		BaseURL: cfg.AtlasPayBaseURL,
		APIKey:  cfg.AtlasPayAPIKey,
		Timeout: time.Duration(cfg.GatewayTimeoutSec) * time.Second,
	})
}

func provideSecondary(cfg config.Config) domain.Gateway {
	return nexopay.New(nexopay.Config{
		BaseURL: cfg.NexoPayBaseURL,
		APIKey:  cfg.NexoPayAPIKey,
		Timeout: time.Duration(cfg.GatewayTimeoutSec) * time.Second,
	})
}
