package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/events"
)

// StatsRefresher is the part of domain.Service the refresh handler drives.
type StatsRefresher interface {
	RefreshStats(ctx context.Context, ownerID string, ref time.Time) ([]domain.StatSummary, error)
	InvalidateCaches(ctx context.Context) error
}

// RefreshHandler recomputes an owner's summaries when ingestion records or deletes an
// activity, then drops cached leaderboard and feed pages.
type RefreshHandler struct {
	stats  StatsRefresher
	logger *zap.Logger
}

// NewRefreshHandler constructs a RefreshHandler.
func NewRefreshHandler(stats StatsRefresher, logger *zap.Logger) *RefreshHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshHandler{stats: stats, logger: logger}
}

// Handle implements Handler. Unknown event types are acknowledged without work.
func (h *RefreshHandler) Handle(ctx context.Context, msg Message) error {
	subject, ok, err := decodeSubject(msg)
	if err != nil {
		return err
	}
	if !ok {
		h.logger.Debug("ignoring event", zap.String("event_type", msg.EventType))
		return nil
	}

	if _, err := h.stats.RefreshStats(ctx, subject.OwnerID, subject.StartTime); err != nil {
		if domain.IsInputError(err) {
			return fmt.Errorf("%w: %w", ErrPoisonMessage, err)
		}
		return fmt.Errorf("refresh stats for %s: %w", subject.OwnerID, err)
	}
	recordRefresh(msg.EventType)

	if err := h.stats.InvalidateCaches(ctx); err != nil {
		h.logger.Warn("cache invalidation failed", zap.String("owner_id", subject.OwnerID), zap.Error(err))
	}
	return nil
}

func decodeSubject(msg Message) (events.Subject, bool, error) {
	var subject events.Subject
	switch msg.EventType {
	case events.TypeActivityRecorded:
		var evt events.ActivityRecorded
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return subject, false, fmt.Errorf("%w: decode %s: %v", ErrPoisonMessage, msg.EventType, err)
		}
		subject = evt.Subject()
	case events.TypeActivityDeleted:
		var evt events.ActivityDeleted
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return subject, false, fmt.Errorf("%w: decode %s: %v", ErrPoisonMessage, msg.EventType, err)
		}
		subject = evt.Subject()
	default:
		return subject, false, nil
	}

	if strings.TrimSpace(subject.OwnerID) == "" || subject.StartTime.IsZero() {
		return subject, false, fmt.Errorf("%w: %s missing owner_id or start_time", ErrPoisonMessage, msg.EventType)
	}
	return subject, true, nil
}
