package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/models"
)

// memorySubmissionRepository keeps submissions in process memory.
// Records are copied on the way in and out so callers never share state with the store.
type memorySubmissionRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Submission
	byToken map[string]string
}

// NewMemorySubmissionRepository creates an empty in-memory repository
func NewMemorySubmissionRepository() *memorySubmissionRepository {
	return &memorySubmissionRepository{
		byID:    make(map[string]*models.Submission),
		byToken: make(map[string]string),
	}
}

func (r *memorySubmissionRepository) GetByToken(ctx context.Context, token string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memorySubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return sub.Clone(), nil
}

func (r *memorySubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[sub.ID]; ok {
		return fmt.Errorf("failed to insert submission: duplicate id %s", sub.ID)
	}
	if _, ok := r.byToken[sub.Token]; ok {
		return fmt.Errorf("failed to insert submission: duplicate token")
	}

	r.byID[sub.ID] = sub.Clone()
	r.byToken[sub.Token] = sub.ID
	return nil
}

func (r *memorySubmissionRepository) SetPaymentStatus(ctx context.Context, id string, isPaid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	sub.IsPaid = isPaid
	return nil
}
