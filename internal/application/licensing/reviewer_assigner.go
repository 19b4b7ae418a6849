package licensing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/licensing"
	"go.uber.org/zap"
)

// DefaultReviewerWorkloadCap is the number of in-review applications a reviewer may hold
const DefaultReviewerWorkloadCap int64 = 10

// ReviewerAssigner enforces the reviewer workload cap.
// The check reads the current count and is not atomic with the following write,
// so two concurrent assignments may both pass at cap-1.
type ReviewerAssigner struct {
	repo    licensing.ApplicationRepository
	cap     int64
	metrics WorkflowMetrics
	logger  *zap.Logger
}

// NewReviewerAssigner creates a ReviewerAssigner; a cap <= 0 uses DefaultReviewerWorkloadCap
func NewReviewerAssigner(repo licensing.ApplicationRepository, cap int64, metrics WorkflowMetrics, logger *zap.Logger) *ReviewerAssigner {
	if cap <= 0 {
		cap = DefaultReviewerWorkloadCap
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewerAssigner{repo: repo, cap: cap, metrics: metrics, logger: logger}
}

// Cap returns the configured workload cap
func (a *ReviewerAssigner) Cap() int64 {
	return a.cap
}

// CheckCapacity returns a CapacityError when the reviewer already holds cap applications
func (a *ReviewerAssigner) CheckCapacity(ctx context.Context, reviewerID uuid.UUID) error {
	if reviewerID == uuid.Nil {
		return licensing.NewValidationError("reviewer_id", "is required")
	}
	workload, err := a.repo.CountActiveByReviewer(ctx, reviewerID)
	if err != nil {
		return fmt.Errorf("count reviewer workload: %w", err)
	}
	if workload >= a.cap {
		a.metrics.RecordAssignmentRejected(ctx)
		a.logger.Info("Reviewer assignment rejected",
			zap.String("reviewer_id", reviewerID.String()),
			zap.Int64("workload", workload),
			zap.Int64("limit", a.cap),
		)
		return &licensing.CapacityError{ReviewerID: reviewerID, Workload: workload, Limit: a.cap}
	}
	return nil
}
