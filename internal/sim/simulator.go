package sim

import (
	"context"
	"log"
	"math/rand"
	"time"

	"machine-utilization-backend/config"
	"machine-utilization-backend/internal/model"
	"machine-utilization-backend/internal/notification"
	"machine-utilization-backend/internal/store"
)

// Service generates plausible hour-log samples on a fixed interval so a
// deployment without a live shop-floor feed still has data to render.
type Service struct {
	cfg    *config.Config
	store  store.Store
	alerts *notification.WorkerPool
	rng    *rand.Rand
	loc    *time.Location
}

// NewService creates the sample generator. alerts may be nil when push is
// not configured.
func NewService(cfg *config.Config, s store.Store, alerts *notification.WorkerPool) *Service {
	loc := time.Local
	if cfg.Simulator.Timezone != "" {
		parsed, err := time.LoadLocation(cfg.Simulator.Timezone)
		if err != nil {
			log.Printf("Warning: invalid simulator timezone %q: %v. Using local time.", cfg.Simulator.Timezone, err)
		} else {
			loc = parsed
		}
	}

	return &Service{
		cfg:    cfg,
		store:  s,
		alerts: alerts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		loc:    loc,
	}
}

// Run starts the generation loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Simulator.Enabled {
		log.Println("Simulator is disabled. Not starting.")
		return
	}
	log.Println("Starting simulator service...")

	s.TickOnce(ctx)

	timer := time.NewTimer(s.cfg.Simulator.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Simulator service shutting down.")
			return
		case <-timer.C:
			s.TickOnce(ctx)
			timer.Reset(s.cfg.Simulator.Interval)
		}
	}
}

// TickOnce appends one generated sample per configured machine.
func (s *Service) TickOnce(ctx context.Context) {
	settings, err := s.store.ListSettings(ctx, "")
	if err != nil {
		log.Printf("Simulator: could not list settings: %v", err)
		return
	}
	if len(settings) == 0 {
		log.Println("Simulator: no machines configured, nothing to generate.")
		return
	}

	now := time.Now().In(s.loc)
	for _, setting := range settings {
		hourLog := s.generate(setting, now)
		if err := s.store.AppendHourLog(ctx, &hourLog); err != nil {
			log.Printf("Simulator: append for %s failed: %v", setting.MachineName, err)
			continue
		}
		if hourLog.StopStatus == 1 && s.alerts != nil {
			s.alerts.Dispatch(setting.ID)
		}
	}
	log.Printf("Simulator: appended %d samples", len(settings))
}

// generate splits the tick interval between run and stop time, with an
// occasional warning share and a rare rework flag.
func (s *Service) generate(setting model.MachineSetting, now time.Time) model.HourLog {
	window := s.cfg.Simulator.Interval.Hours()
	runShare := 0.2 + 0.75*s.rng.Float64()
	runHour := window * runShare
	stopHour := window - runHour

	var warningHour float64
	if s.rng.Float64() < 0.2 {
		warningHour = runHour * 0.25 * s.rng.Float64()
	}

	hourLog := model.HourLog{
		LogTime:     now,
		MachineName: setting.MachineName,
		RunHour:     runHour,
		StopHour:    stopHour,
		WarningHour: warningHour,
	}

	if s.rng.Float64() < runShare {
		hourLog.RunStatus = 1
	} else {
		hourLog.StopStatus = 1
	}
	if s.rng.Float64() < 0.05 {
		rework := 1
		hourLog.ReworkStatus = &rework
	}
	return hourLog
}
