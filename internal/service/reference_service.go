package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type referenceRepository interface {
	Load(ctx context.Context) (*models.SchoolConfig, error)
}

// ReferenceService serves faculties, programs and student statuses.
type ReferenceService struct {
	repo   referenceRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewReferenceService constructs the reference service.
func NewReferenceService(repo referenceRepository, cache *CacheService, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{repo: repo, cache: cache, logger: logger}
}

// Load returns the reference data, served from cache when possible.
func (s *ReferenceService) Load(ctx context.Context) (*models.SchoolConfig, error) {
	var cached models.SchoolConfig
	if s.cache.Get(ctx, cacheKeyReference, &cached) {
		return &cached, nil
	}
	cfg, err := s.repo.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference data")
	}
	s.cache.Set(ctx, cacheKeyReference, cfg, 0)
	return cfg, nil
}
