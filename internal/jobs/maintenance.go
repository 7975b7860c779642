package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/repository"
)

// Maintenance owns the recurring housekeeping tasks: clearing expired card
// burials so the selector's exclusion predicate stays cheap.
type Maintenance struct {
	scheduler *gocron.Scheduler
	cards     repository.CardRepository
	logger    logrus.FieldLogger
}

func NewMaintenance(cards repository.CardRepository, logger logrus.FieldLogger) *Maintenance {
	return &Maintenance{
		scheduler: gocron.NewScheduler(time.UTC),
		cards:     cards,
		logger:    logger,
	}
}

// Start schedules the daily sweep shortly after the UTC day rollover and runs
// the scheduler in the background.
func (m *Maintenance) Start() error {
	if _, err := m.scheduler.Every(1).Day().At("00:10").Do(m.sweep); err != nil {
		return err
	}
	m.scheduler.StartAsync()
	return nil
}

func (m *Maintenance) Stop() {
	m.scheduler.Stop()
}

func (m *Maintenance) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cleared, err := m.cards.ClearExpiredBurials(ctx, time.Now().UTC())
	if err != nil {
		m.logger.WithError(err).Warn("burial sweep failed")
		return
	}
	m.logger.WithField("cleared", cleared).Debug("burial sweep complete")
}
