package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
)

type catalogAPI interface {
	FetchSubjects(ctx context.Context) ([]models.Subject, error)
	FetchExerciseCatalog(ctx context.Context, subjectID string) ([]models.Exercise, error)
}

// CatalogService serves subjects and the exercise catalog through the cache.
// Both change rarely upstream; cache failures fall through to the API.
type CatalogService struct {
	api    catalogAPI
	cache  *CacheService
	logger *zap.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(api catalogAPI, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{api: api, cache: cache, logger: logger}
}

// Subjects returns every subject.
func (s *CatalogService) Subjects(ctx context.Context) ([]models.Subject, error) {
	key := CacheKey("subjects")
	var cached []models.Subject
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	subjects, err := s.api.FetchSubjects(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, subjects, 0)
	return subjects, nil
}

// Exercises returns the catalog, restricted to one subject when subjectID is set.
func (s *CatalogService) Exercises(ctx context.Context, subjectID string) ([]models.Exercise, error) {
	key := CacheKey("exercises", subjectID)
	if subjectID == "" {
		key = CacheKey("exercises", "all")
	}
	var cached []models.Exercise
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	exercises, err := s.api.FetchExerciseCatalog(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, exercises, 0)
	return exercises, nil
}

// Invalidate drops every cached catalog entry.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, CacheKey("*"))
}
