package app

import (
	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/playground/internal/common"
)

// Job is a unit of background work run on a cron schedule
type Job interface {
	Run() error
	Name() string
}

// Janitor runs background maintenance jobs
type Janitor struct {
	cron   *cron.Cron
	logger *common.Logger
}

// NewJanitor creates a scheduler accepting standard five-field specs and
// descriptors such as "@every 1m".
func NewJanitor(logger *common.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start starts the scheduler
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info().Int("jobs", len(j.cron.Entries())).Msg("Janitor started")
}

// Stop stops the scheduler and waits for running jobs
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info().Msg("Janitor stopped")
}

// AddJob registers job under a cron schedule
func (j *Janitor) AddJob(schedule string, job Job) error {
	_, err := j.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			j.logger.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
			return
		}
		j.logger.Debug().Str("job", job.Name()).Msg("Job completed")
	})
	if err != nil {
		return err
	}

	j.logger.Debug().Str("schedule", schedule).Str("job", job.Name()).Msg("Job registered")
	return nil
}

// purgeJob drops expired cache entries
type purgeJob struct {
	name  string
	purge func() int
}

func (p purgeJob) Name() string { return p.name }

func (p purgeJob) Run() error {
	p.purge()
	return nil
}
