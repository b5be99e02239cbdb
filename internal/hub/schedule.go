package hub

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartQueueTicker posts a Tick to the hub every interval. The caller owns
// the returned scheduler and must Shutdown it.
func StartQueueTicker(h *Hub, every time.Duration, log *zap.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if !h.Post(Tick{}) {
				log.Debug("queue tick skipped, hub stopped")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule queue tick: %w", err)
	}

	sched.Start()
	log.Info("queue ticker started", zap.Duration("every", every))
	return sched, nil
}
