package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type accessEnrollmentReader interface {
	FindByUserAndSubject(ctx context.Context, kind models.SubjectKind, userID, subjectID string) (*models.Enrollment, error)
}

type lessonReader interface {
	FindLesson(ctx context.Context, courseID, lessonID string) (*models.Lesson, error)
}

// AccessService answers the single question the content routes need: may
// this member see this subject's content right now?
type AccessService struct {
	enrollments accessEnrollmentReader
	lessons     lessonReader
	logger      *zap.Logger
}

// NewAccessService constructs AccessService.
func NewAccessService(enrollments accessEnrollmentReader, lessons lessonReader, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{enrollments: enrollments, lessons: lessons, logger: logger}
}

// HasAccess reports whether the member holds a settled (PAID) enrollment for
// the subject. PENDING and CANCELLED enrollments grant nothing, and admins
// get no implicit bypass here; handlers decide role shortcuts.
func (s *AccessService) HasAccess(ctx context.Context, kind models.SubjectKind, userID, subjectID string) (bool, error) {
	enrollment, err := s.enrollments.FindByUserAndSubject(ctx, kind, userID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return enrollment.PaymentStatus == models.PaymentPaid, nil
}

// Lesson returns one course lesson, enforcing the access gate. Lessons
// flagged free_preview are served to any authenticated member.
func (s *AccessService) Lesson(ctx context.Context, courseID, lessonID, userID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindLesson(ctx, courseID, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if lesson.FreePreview {
		return lesson, nil
	}
	allowed, err := s.HasAccess(ctx, models.SubjectCourse, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment payment not confirmed")
	}
	return lesson, nil
}
