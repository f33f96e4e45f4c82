package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/pkg/storage"
)

var (
	// ErrAccountNotFound indicates no matching account exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountForbidden indicates the caller may not remove this account.
	ErrAccountForbidden = errors.New("cannot delete another user's account")
)

// AccountService handles destructive account removal. Deleting an account
// takes everything it owns along with it.
type AccountService interface {
	DeleteAccount(ctx context.Context, actor Actor) (dto.CascadeDeleteResult, error)
}

type accountService struct {
	users    repository.UserRepository
	files    storage.FileStore
	activity ActivityService
	events   *EventPublisher
	logger   zerolog.Logger
}

// NewAccountService wires account removal.
func NewAccountService(
	users repository.UserRepository,
	files storage.FileStore,
	activity ActivityService,
	events *EventPublisher,
	logger zerolog.Logger,
) AccountService {
	return &accountService{
		users:    users,
		files:    files,
		activity: activity,
		events:   events,
		logger:   logger.With().Str("component", "account_service").Logger(),
	}
}

// DeleteAccount removes the caller's own account. Students lose their
// enrollments and submissions; teachers lose their courses, assignments and
// everything underneath. Stored files are released afterwards, best-effort.
func (s *accountService) DeleteAccount(ctx context.Context, actor Actor) (dto.CascadeDeleteResult, error) {
	var (
		paths []string
		err   error
	)

	switch actor.Role {
	case models.RoleStudent:
		paths, err = s.users.DeleteStudentCascade(ctx, actor.ID)
	case models.RoleTeacher:
		paths, err = s.users.DeleteTeacherCascade(ctx, actor.ID)
	default:
		return dto.CascadeDeleteResult{}, ErrAccountForbidden
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CascadeDeleteResult{}, ErrAccountNotFound
		}
		return dto.CascadeDeleteResult{}, err
	}

	result := removeFiles(ctx, s.files, paths, s.logger)

	s.events.Publish(ctx, "account_deleted", map[string]interface{}{
		"user_id": actor.ID,
		"role":    actor.Role,
	})

	return result, nil
}
