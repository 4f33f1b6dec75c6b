package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/game"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/platform/id"
	"github.com/riskibarqy/career-engine/internal/platform/logging"
)

// NotificationService writes inbox messages for the user of a save.
type NotificationService struct {
	repo   notification.Repository
	ids    id.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewNotificationService(repo notification.Repository, ids id.Generator, logger *logging.Logger) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &NotificationService{
		repo:   repo,
		ids:    ids,
		logger: logger,
		now:    time.Now,
	}
}

// Message is the content of one notification.
type Message struct {
	Type      notification.Type
	Title     string
	Body      string
	Priority  string
	DedupeKey string
	Metadata  map[string]any
}

func (s *NotificationService) Notify(ctx context.Context, g game.Game, msg Message) error {
	notificationID, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate notification id: %w", err)
	}
	priority := msg.Priority
	if priority == "" {
		priority = notification.PriorityNormal
	}
	metadata := make(map[string]any, len(msg.Metadata)+1)
	for k, v := range msg.Metadata {
		metadata[k] = v
	}
	if !g.CurrentDate.IsZero() {
		metadata["game_date"] = g.CurrentDate.Format(time.DateOnly)
	}

	n := notification.Notification{
		ID:        notificationID,
		GameID:    g.ID,
		Type:      msg.Type,
		Title:     msg.Title,
		Message:   msg.Body,
		Priority:  priority,
		DedupeKey: msg.DedupeKey,
		Metadata:  metadata,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification type=%s: %w", msg.Type, err)
	}
	return nil
}

// NotifyOnce sends msg unless one with the same type and dedupe key exists.
// It reports whether a notification was written.
func (s *NotificationService) NotifyOnce(ctx context.Context, g game.Game, msg Message) (bool, error) {
	if msg.DedupeKey == "" {
		return false, fmt.Errorf("%w: dedupe key is required", ErrInvalidInput)
	}
	exists, err := s.repo.Exists(ctx, g.ID, msg.Type, msg.DedupeKey, time.Time{})
	if err != nil {
		return false, fmt.Errorf("check notification type=%s key=%s: %w", msg.Type, msg.DedupeKey, err)
	}
	if exists {
		return false, nil
	}
	if err := s.Notify(ctx, g, msg); err != nil {
		return false, err
	}
	return true, nil
}
