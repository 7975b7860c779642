package usecase

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/scheduler"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// newTestStudy wires a studyUsecase onto a memDB with a pinned clock, a
// midpoint interval smear, and a deterministic requeue roll.
func newTestStudy(db *memDB) *studyUsecase {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sched := scheduler.New(scheduler.DefaultParams(),
		scheduler.WithUniform(func() float64 { return 0.5 }))

	uc := NewStudyUsecase(
		db,
		memCards{db},
		memWords{db},
		memUserWords{db},
		memSettings{db},
		memLogs{db},
		sched,
		logger,
	).(*studyUsecase)

	uc.clock = func() time.Time { return testNow }
	uc.intn = func(n int) int { return 0 }
	uc.uniform = func() float64 { return 0.5 }
	return uc
}

func tp(t time.Time) *time.Time { return &t }
