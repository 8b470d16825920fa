package queue

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

// Scheduler enqueues the two recurring refresh slots. Re-triggering a slot
// that is still queued is tolerated; the queue serializes runs anyway.
type Scheduler struct {
	cron     *cron.Cron
	store    store.Store
	schedule config.ScheduleConfig
	queue    config.QueueConfig
}

// NewScheduler creates a Scheduler. Call Start to begin ticking.
func NewScheduler(schedule config.ScheduleConfig, queue config.QueueConfig, st store.Store) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		store:    st,
		schedule: schedule,
		queue:    queue,
	}
}

// Start registers both slots and starts the cron loop.
func (s *Scheduler) Start() error {
	slots := map[string]string{
		"month-start": s.schedule.MonthStartCron,
		"mid-month":   s.schedule.MidMonthCron,
	}
	for slot, spec := range slots {
		if _, err := s.cron.AddFunc(spec, func() { s.fire(slot) }); err != nil {
			return eris.Wrapf(err, "queue: schedule slot %s (%s)", slot, spec)
		}
		zap.L().Info("queue: slot scheduled",
			zap.String("slot", slot), zap.String("spec", spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for in-flight enqueues.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// fire enqueues one scheduled full refresh. Scheduled slots always run all
// sources.
func (s *Scheduler) fire(slot string) {
	job := &model.RunJob{
		Trigger:     model.TriggerScheduled,
		Slot:        slot,
		Full:        true,
		MaxAttempts: s.queue.MaxAttempts,
	}
	if err := s.store.EnqueueJob(context.Background(), job); err != nil {
		zap.L().Error("queue: enqueue scheduled run",
			zap.String("slot", slot), zap.Error(err))
		return
	}
	zap.L().Info("queue: scheduled run enqueued",
		zap.String("slot", slot), zap.String("job_id", job.ID))
}
