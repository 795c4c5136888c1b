package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type stubCatalogRepo struct {
	subjects   map[string]*models.Subject
	lessons    []models.Lesson
	lastFilter models.SubjectFilter
}

func (m *stubCatalogRepo) FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubCatalogRepo) List(ctx context.Context, kind models.SubjectKind, filter models.SubjectFilter) ([]models.SubjectSummary, int, error) {
	m.lastFilter = filter
	var out []models.SubjectSummary
	for _, s := range m.subjects {
		if filter.PublishedOnly && !s.Published {
			continue
		}
		out = append(out, models.SubjectSummary{Subject: *s})
	}
	return out, len(out), nil
}

func (m *stubCatalogRepo) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	return m.lessons, nil
}

func TestCatalogListForcesPublishedOnly(t *testing.T) {
	repo := &stubCatalogRepo{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Published: true},
		"sub-2": {ID: "sub-2", Published: false},
	}}
	svc := NewCatalogService(repo, nil)

	subjects, pagination, err := svc.List(context.Background(), models.SubjectCourse, models.SubjectFilter{PublishedOnly: false})
	require.NoError(t, err)

	assert.True(t, repo.lastFilter.PublishedOnly)
	assert.Len(t, subjects, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCatalogGetHidesUnpublished(t *testing.T) {
	repo := &stubCatalogRepo{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Published: false},
	}}
	svc := NewCatalogService(repo, nil)

	_, err := svc.Get(context.Background(), models.SubjectClass, "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogLessonsRequirePublishedCourse(t *testing.T) {
	repo := &stubCatalogRepo{
		subjects: map[string]*models.Subject{
			"crs-1": {ID: "crs-1", Published: true},
			"crs-2": {ID: "crs-2", Published: false},
		},
		lessons: []models.Lesson{{ID: "les-1", CourseID: "crs-1", Title: "Intro"}},
	}
	svc := NewCatalogService(repo, nil)

	lessons, err := svc.Lessons(context.Background(), "crs-1")
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	_, err = svc.Lessons(context.Background(), "crs-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogRejectsUnknownKind(t *testing.T) {
	svc := NewCatalogService(&stubCatalogRepo{}, nil)

	_, _, err := svc.List(context.Background(), models.SubjectKind("bootcamp"), models.SubjectFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
