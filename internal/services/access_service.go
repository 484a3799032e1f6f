package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/previewvault/backend/internal/access"
	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/metrics"
	"github.com/previewvault/backend/internal/models"
	"go.uber.org/zap"
)

// AccessService resolves customer links and toggles payment status
type AccessService struct {
	repo   SubmissionRepository
	logger *zap.Logger
}

// NewAccessService creates a new access service
func NewAccessService(repo SubmissionRepository, logger *zap.Logger) *AccessService {
	return &AccessService{
		repo:   repo,
		logger: logger,
	}
}

// Access returns the view of the submission behind token as of now.
// Unknown tokens yield common.ErrNotFound and expired links a *common.ExpiredError.
func (s *AccessService) Access(ctx context.Context, token string, now time.Time) (*models.GatedView, error) {
	sub, err := s.repo.GetByToken(ctx, token)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	// sub is nil for unknown tokens, which the gate reports as not found
	state := access.Decide(sub, now)
	metrics.AccessTotal.WithLabelValues(string(state)).Inc()

	return access.Shape(sub, now)
}

// AuthorizeMedia checks that name is linked from the current view of the submission with the given id.
// Artifacts the view does not link to, such as locked originals of an unpaid submission, yield common.ErrNotFound.
// Expired submissions yield a *common.ExpiredError.
func (s *AccessService) AuthorizeMedia(ctx context.Context, submissionID, name string, now time.Time) error {
	sub, err := s.repo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get submission: %w", err)
	}

	view, err := access.Shape(sub, now)
	if err != nil {
		return err
	}

	for _, locator := range linkedLocators(view) {
		if path.Base(locator) == name {
			return nil
		}
	}
	return common.ErrNotFound
}

// linkedLocators lists every locator a view hands out
func linkedLocators(view *models.GatedView) []string {
	var locators []string
	for _, p := range view.Photos {
		locators = append(locators, p.URL)
	}
	for _, v := range view.Videos {
		if v.URL != nil {
			locators = append(locators, *v.URL)
		}
		if v.ThumbnailURL != "" {
			locators = append(locators, v.ThumbnailURL)
		}
	}
	return locators
}

// SetPaymentStatus marks the submission as paid or unpaid.
// Nothing but the paid flag changes, so the free preview and stored artifacts stay as ingested.
func (s *AccessService) SetPaymentStatus(ctx context.Context, id string, isPaid bool) error {
	if err := s.repo.SetPaymentStatus(ctx, id, isPaid); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to set payment status: %w", err)
	}

	s.logger.Info("payment status updated",
		zap.String("submission_id", id),
		zap.Bool("is_paid", isPaid),
	)
	return nil
}
