package scheduler

import (
	"context"
	"errors"
	"time"

	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	obsmetrics "github.com/smallbiznis/storefront/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	CheckoutSvc checkoutdomain.Service
	Config      Config              `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

// Scheduler periodically sweeps stale pending checkout attempts to
// abandoned.
type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	checkoutSvc checkoutdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.CheckoutSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		checkoutSvc: p.CheckoutSvc,
		obsMetrics:  p.ObsMetrics,
	}, nil
}

// RunOnce executes one sweep under the per-run timeout.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	start := s.clock.Now()
	swept, err := s.checkoutSvc.SweepAbandoned(ctx, s.cfg.AbandonAfter)
	if err != nil {
		s.log.Warn("abandonment sweep failed", zap.Error(err))
		return err
	}

	s.obsMetrics.RecordCheckoutSwept(ctx, swept)
	if swept > 0 {
		s.log.Info("abandonment sweep completed",
			zap.Int64("swept", swept),
			zap.Duration("window", s.cfg.AbandonAfter),
			zap.Duration("took", s.clock.Now().Sub(start)),
		)
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
