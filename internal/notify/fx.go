package notify

import (
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provide(cfg config.Config, log *zap.Logger) Notifier {
	if cfg.NotifyPostbackURL == "" {
		log.Warn("no postback endpoint configured, purchase notifications disabled")
		return NoOpNotifier{}
	}
	return NewPostbackNotifier(cfg.NotifyPostbackURL, time.Duration(cfg.NotifyTimeoutSec)*time.Second, log)
}

var Module = fx.Module("notify",
	fx.Provide(provide),
)
