package statistic

import (
	"context"
	"github.com/roylee0704/gron"
	"sync"
	"time"
	"viewguard/internal/providers"
	"viewguard/internal/services"
	"viewguard/internal/statistic/interfaces"
	"viewguard/internal/structures"
)

const jobTimeout = 30 * time.Second

type Scheduler struct {
	config *structures.Config
	logger providers.Logger
	alerts services.AlertServiceInterface
	cron   *gron.Cron
	opsMu  sync.Mutex
	now    func() time.Time
}

func (s *Scheduler) Init() {
	if !s.config.Alerts.Enabled || s.config.Alerts.Interval <= 0 {
		s.logger.Infof(providers.TypeApp, "Anti-fraud alert checks disabled")
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Alerts.Interval), s.checkRejectionRate)
	s.cron.Start()

	s.logger.Infof(providers.TypeApp, "Anti-fraud alert checks every %s", s.config.Alerts.Interval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) RunOnce() {
	s.checkRejectionRate()
}

func (s *Scheduler) checkRejectionRate() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	alert, err := s.alerts.CheckRejectionRate(ctx, s.now())
	if err != nil {
		s.logger.Errorf(providers.TypeFraud, "Rejection rate check failed: %s", err)
		return
	}
	if alert == nil {
		s.logger.Debugf(providers.TypeFraud, "Rejection rate within bounds")
	}
}

func NewScheduler(config *structures.Config, logger providers.Logger, alerts services.AlertServiceInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config: config,
		logger: logger,
		alerts: alerts,
		now:    time.Now,
	}
}
