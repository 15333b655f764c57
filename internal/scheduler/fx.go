package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(run),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:  time.Duration(cfg.SweepIntervalMin) * time.Minute,
		AbandonAfter: time.Duration(cfg.CheckoutAbandonAfterMin) * time.Minute,
	}.withDefaults()
}

func run(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loopCtx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(loopCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
