package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tipvault/tipvault/pkg/logger"
)

// Sweeper periodically expires locally managed subscriptions whose billing
// period has ended. Provider-driven agreements are excluded from the
// sweep; the processor announces their lifecycle by webhook.
type Sweeper struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	log      *slog.Logger
}

// NewSweeper creates a sweeper on the given cron schedule
// (e.g. "0 * * * *" for hourly). Panics on a nil service.
func NewSweeper(svc *Service, schedule string, log *slog.Logger) *Sweeper {
	if svc == nil {
		panic("subscription: Service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	return &Sweeper{
		svc:      svc,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		schedule: schedule,
		timeout:  time.Minute,
		log:      log,
	}
}

// Start registers the sweep job and starts the scheduler in its own
// goroutine.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("subscription sweeper started", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("subscription sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.svc.SweepExpired(ctx); err != nil {
		s.log.Error("subscription sweep failed", logger.Error(err))
	}
}
