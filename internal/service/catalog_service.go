package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type catalogRepository interface {
	FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Subject, error)
	List(ctx context.Context, kind models.SubjectKind, filter models.SubjectFilter) ([]models.SubjectSummary, int, error)
	ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error)
}

// CatalogService serves the public catalog of class groups, courses and
// mentorships. Members browse here before enrolling; no auth is required.
type CatalogService struct {
	repo   catalogRepository
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// List returns published subjects of one kind with occupancy counts.
func (s *CatalogService) List(ctx context.Context, kind models.SubjectKind, filter models.SubjectFilter) ([]models.SubjectSummary, *models.Pagination, error) {
	if !kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	filter.PublishedOnly = true
	subjects, total, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return subjects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one published subject. Unpublished subjects are invisible to
// the public catalog.
func (s *CatalogService) Get(ctx context.Context, kind models.SubjectKind, id string) (*models.Subject, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	subject, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return subject, nil
}

// Lessons returns a course's lesson index without content bodies. The index
// itself is public; content is gated per lesson.
func (s *CatalogService) Lessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if _, err := s.Get(ctx, models.SubjectCourse, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}
