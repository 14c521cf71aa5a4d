// Package scheduler re-runs saved queries on cron schedules while the
// daemon is up.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/user/querydesk/internal/types"
)

// Handler is the callback invoked when a scheduled query fires.
type Handler func(sq *types.ScheduledQuery)

// Scheduler evaluates cron expressions from the schedule store and fires
// queries through a handler callback.
type Scheduler struct {
	store   types.ScheduleStore
	handler Handler
	cron    *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler backed by the given store. The handler is called
// each time a scheduled query fires.
func New(store types.ScheduleStore, handler Handler) *Scheduler {
	return &Scheduler{
		store:   store,
		handler: handler,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start loads schedules from the store, registers the enabled ones as cron
// entries, and starts the cron ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	for _, sq := range schedules {
		if sq.Schedule == "" || !sq.Enabled {
			continue
		}
		entry := sq
		if _, err := s.cron.AddFunc(entry.Schedule, func() {
			slog.Info("cron firing scheduled query", "name", entry.Name, "query", entry.Query)
			s.handler(entry)
		}); err != nil {
			slog.Warn("skipping schedule with bad cron expression", "name", entry.Name, "schedule", entry.Schedule, "error", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Validate reports whether expr is an acceptable cron expression.
func Validate(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}
