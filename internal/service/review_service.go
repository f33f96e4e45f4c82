package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/pkg/docext"
	"github.com/classhive/classhive-api/pkg/llm"
)

// ErrContentUnavailable indicates the submission's gradable text could not be
// recovered (no inline text and the upload could not be read).
var ErrContentUnavailable = errors.New("submission content unavailable")

const defaultPlanTTL = 24 * time.Hour

// ReviewService runs the AI review pipeline over a submission: evaluate the
// work, parse a score out of the narrative, then build a study plan from the
// evaluation. The evaluation is memoized on the submission row and written at
// most once; the study plan is regenerated on demand with a short-lived
// cache.
type ReviewService interface {
	Preview(ctx context.Context, actor Actor, submissionID uint) (dto.ReviewResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	grader      llm.Grader
	cache       *redis.Client
	planTTL     time.Duration
	activity    ActivityService
	events      *EventPublisher
	logger      zerolog.Logger
	extract     func(path string) (string, error)
}

// NewReviewService wires the review pipeline. The Redis client is optional;
// without it study plans are regenerated on every call.
func NewReviewService(
	submissions repository.SubmissionRepository,
	grader llm.Grader,
	cache *redis.Client,
	planTTL time.Duration,
	activity ActivityService,
	events *EventPublisher,
	logger zerolog.Logger,
) ReviewService {
	if planTTL <= 0 {
		planTTL = defaultPlanTTL
	}

	return &reviewService{
		submissions: submissions,
		grader:      grader,
		cache:       cache,
		planTTL:     planTTL,
		activity:    activity,
		events:      events,
		logger:      logger.With().Str("component", "review_service").Logger(),
		extract:     docext.ExtractText,
	}
}

func (s *reviewService) Preview(ctx context.Context, actor Actor, submissionID uint) (dto.ReviewResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrSubmissionNotFound
		}
		return dto.ReviewResponse{}, err
	}

	if !s.canReview(actor, submission) {
		return dto.ReviewResponse{}, ErrSubmissionNotFound
	}

	content, err := s.gradableContent(submission)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	evaluation, score, fresh, err := s.evaluation(ctx, submission, content)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	plan, planCached := s.studyPlan(ctx, submission.ID, content, evaluation)

	if fresh {
		entityID := submission.ID
		s.activity.Record(ctx, actor, "submission_reviewed", "submission", &entityID, map[string]interface{}{
			"assignment_id": submission.AssignmentID,
			"ai_score":      score,
		})
		s.events.Publish(ctx, "submission_reviewed", map[string]interface{}{
			"submission_id": submission.ID,
			"assignment_id": submission.AssignmentID,
			"student_id":    submission.StudentID,
		})
	}

	return dto.ReviewResponse{
		SubmissionID: submission.ID,
		Evaluation:   evaluation,
		AIScore:      score,
		StudyPlan:    plan,
		PlanCached:   planCached,
	}, nil
}

func (s *reviewService) canReview(actor Actor, submission models.Submission) bool {
	if actor.Role == models.RoleTeacher {
		return submission.Assignment.OwnedBy(actor.ID)
	}
	return submission.StudentID == actor.ID
}

// gradableContent prefers the inline text and falls back to extracting the
// uploaded document.
func (s *reviewService) gradableContent(submission models.Submission) (string, error) {
	if strings.TrimSpace(submission.Content) != "" {
		return submission.Content, nil
	}

	if submission.FilePath == "" {
		return "", ErrContentUnavailable
	}

	text, err := s.extract(submission.FilePath)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to extract upload text")
		return "", fmt.Errorf("%w: %s", ErrContentUnavailable, err)
	}
	return text, nil
}

// evaluation returns the stored narrative when one exists; otherwise it runs
// the model once and stores the outcome through a conditional write. Losing
// that write to a concurrent review is fine: the stored narrative wins and
// this call's result is discarded.
func (s *reviewService) evaluation(ctx context.Context, submission models.Submission, content string) (string, *float64, bool, error) {
	if submission.Evaluated() {
		return *submission.EvaluationResult, submission.AIScore, false, nil
	}

	narrative := s.grader.Evaluate(ctx, content)
	score := llm.ExtractScore(narrative)

	won, err := s.submissions.StoreEvaluation(ctx, submission.ID, narrative, score)
	if err != nil {
		return "", nil, false, err
	}
	if won {
		return narrative, score, true, nil
	}

	stored, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return "", nil, false, err
	}
	if stored.Evaluated() {
		return *stored.EvaluationResult, stored.AIScore, false, nil
	}

	// Row disappeared or was cleared between writes; fall back to this run.
	return narrative, score, true, nil
}

// studyPlan builds the plan strictly from the stored evaluation. An empty
// evaluation yields no plan.
func (s *reviewService) studyPlan(ctx context.Context, submissionID uint, content, evaluation string) (string, bool) {
	if strings.TrimSpace(evaluation) == "" {
		return "", false
	}

	key := fmt.Sprintf("review:plan:%d", submissionID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil && cached != "" {
			return cached, true
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("study plan cache read failed")
		}
	}

	plan := s.grader.GeneratePlan(ctx, content, evaluation)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, plan, s.planTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("study plan cache write failed")
		}
	}

	return plan, false
}
