package webhook

import (
	"github.com/smallbiznis/storefront/internal/webhook/adapters"
	"github.com/smallbiznis/storefront/internal/webhook/repository"
	"github.com/smallbiznis/storefront/internal/webhook/service"
	"github.com/smallbiznis/storefront/internal/webhook/verifier"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.ingest",
	fx.Provide(provideRegistry),
	fx.Provide(verifier.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func provideRegistry() *adapters.Registry {
	return adapters.NewRegistry(adapters.AtlasPay{}, adapters.NexoPay{})
}
