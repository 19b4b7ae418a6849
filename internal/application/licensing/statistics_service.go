package licensing

import (
	"context"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"go.uber.org/zap"
)

// StatisticsScope selects whose applications are summarised
type StatisticsScope string

const (
	ScopeMine   StatisticsScope = "mine"
	ScopeGlobal StatisticsScope = "global"
)

// StatisticsService reports application counts and processing times
type StatisticsService struct {
	repo   licensing.ApplicationRepository
	logger *zap.Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(repo licensing.ApplicationRepository, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{repo: repo, logger: logger}
}

// GetStatistics returns statistics for userID, or across all applicants when userID is nil
func (s *StatisticsService) GetStatistics(ctx context.Context, userID *uuid.UUID) (*StatisticsResponse, error) {
	stats, err := s.repo.AggregateStatistics(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to aggregate license statistics", zap.Error(err))
		return nil, err
	}
	resp := ToStatisticsResponse(stats)
	return &resp, nil
}

// ForActor resolves the scope for the caller; global statistics need reviewer permission
func (s *StatisticsService) ForActor(ctx context.Context, actor Actor, scope StatisticsScope) (*StatisticsResponse, error) {
	switch scope {
	case "", ScopeMine:
		id := actor.UserID
		return s.GetStatistics(ctx, &id)
	case ScopeGlobal:
		if !actor.CanReview() {
			return nil, ErrReviewerPermission
		}
		return s.GetStatistics(ctx, nil)
	}
	return nil, licensing.NewValidationError("scope", "must be mine or global")
}
