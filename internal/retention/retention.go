package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
)

// Job prunes closed sessions older than the retention window on a cron
// schedule. Open sessions are never touched.
type Job struct {
	sessions repositories.SessionRepository
	logger   *logrus.Logger
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
}

// NewJob creates a retention job
func NewJob(sessions repositories.SessionRepository, logger *logrus.Logger, maxAge time.Duration, schedule string) *Job {
	return &Job{
		sessions: sessions,
		logger:   logger,
		maxAge:   maxAge,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the schedule and begins running
func (j *Job) Start() error {
	_, err := j.cron.AddFunc(j.schedule, j.runOnce)
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.WithFields(logrus.Fields{
		"schedule": j.schedule,
		"max_age":  j.maxAge.String(),
	}).Info("Session retention job started")
	return nil
}

// Stop halts the schedule, waiting for a running prune to finish
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("Session retention job stopped")
}

// RunOnce prunes immediately, outside the schedule
func (j *Job) RunOnce() {
	j.runOnce()
}

func (j *Job) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.maxAge)
	deleted, err := j.sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.WithError(err).Error("Session retention prune failed")
		return
	}

	if deleted > 0 {
		j.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned expired sessions")
	}
}
