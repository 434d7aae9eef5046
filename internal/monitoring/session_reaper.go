package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

// SessionReaper periodically deletes sessions that expired longer ago than
// the retention window. Recently expired sessions stay in place so repeated
// logouts keep finding their row.
type SessionReaper struct {
	authSvc   services.AuthServiceProvider
	eventSvc  services.EventServiceProvider
	schedule  cron.Schedule
	retention time.Duration
	done      chan bool
}

// NewSessionReaper creates a reaper firing on the given standard cron
// expression, purging sessions expired for longer than retention.
func NewSessionReaper(authSvc services.AuthServiceProvider, eventSvc services.EventServiceProvider, cronSpec string, retention time.Duration) (*SessionReaper, error) {
	schedule, err := cron.ParseStandard(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid reap schedule %q: %w", cronSpec, err)
	}
	return &SessionReaper{
		authSvc:   authSvc,
		eventSvc:  eventSvc,
		schedule:  schedule,
		retention: retention,
		done:      make(chan bool),
	}, nil
}

// Run starts the reaping loop.
func (sr *SessionReaper) Run() {
	log.Info().Msg("Starting background session reaper...")

	// Run once immediately on start
	sr.reap()

	for {
		now := time.Now()
		timer := time.NewTimer(sr.schedule.Next(now).Sub(now))
		select {
		case <-sr.done:
			timer.Stop()
			log.Info().Msg("Stopping background session reaper.")
			return
		case <-timer.C:
			sr.reap()
		}
	}
}

// Stop halts the reaper.
func (sr *SessionReaper) Stop() {
	sr.done <- true
}

func (sr *SessionReaper) reap() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-sr.retention)
	purged, err := sr.authSvc.PurgeExpiredSessions(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Session reaper: failed to purge expired sessions")
		return
	}
	if purged == 0 {
		return
	}

	log.Info().Int64("sessions", purged).Msg("Purged expired sessions")
	msg := fmt.Sprintf("purged %d expired sessions", purged)
	if err := sr.eventSvc.CreateEvent(ctx, "session.reap", "info", msg, nil); err != nil {
		log.Warn().Err(err).Msg("Session reaper: failed to record event")
	}
}
