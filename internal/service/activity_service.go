package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
)

// Actor identifies who triggered an operation.
type Actor struct {
	ID   uint
	Role string
}

// ActivityService records auditable platform events. Recording is
// best-effort; a failed write must never fail the operation being audited.
type ActivityService interface {
	Record(ctx context.Context, actor Actor, action, entityType string, entityID *uint, metadata map[string]interface{})
	Recent(ctx context.Context, limit int) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService instantiates the audit recorder.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, actor Actor, action, entityType string, entityID *uint, metadata map[string]interface{}) {
	entry := models.ActivityLog{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Msg("failed to record activity")
	}
}

func (s *activityService) Recent(ctx context.Context, limit int) ([]dto.ActivityResponse, error) {
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	return dto.ToActivityResponses(entries), nil
}
