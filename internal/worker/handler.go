package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/repository"
)

// EventLogCompactionHandler deletes event-log rows older than ttl, across
// every room, on each run of the periodic compaction task.
type EventLogCompactionHandler struct {
	eventRepo repository.GameEventRepository
	ttl       time.Duration
}

func NewEventLogCompactionHandler(eventRepo repository.GameEventRepository, ttl time.Duration) *EventLogCompactionHandler {
	if eventRepo == nil {
		panic("GameEventRepository cannot be nil for EventLogCompactionHandler")
	}
	if ttl <= 0 {
		panic("ttl must be positive for EventLogCompactionHandler")
	}
	return &EventLogCompactionHandler{eventRepo: eventRepo, ttl: ttl}
}

// ProcessTask implements asynq.Handler.
func (h *EventLogCompactionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-h.ttl)
	removed, err := h.eventRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("event log compaction failed")
		return err
	}
	logrus.WithFields(logrus.Fields{"removed": removed, "cutoff": cutoff}).Info("event log compaction complete")
	return nil
}
