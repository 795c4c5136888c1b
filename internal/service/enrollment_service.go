package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/repository"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, kind models.SubjectKind, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Enrollment, error)
	FindByUserAndSubject(ctx context.Context, kind models.SubjectKind, userID, subjectID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, kind models.SubjectKind, userID string) ([]models.Enrollment, error)
	List(ctx context.Context, kind models.SubjectKind, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Transition(ctx context.Context, kind models.SubjectKind, id string, version int, status models.PaymentStatus, paidAt *time.Time) (bool, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Subject, error)
}

type profileStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollRequest carries the enrollment form: the target subject plus the
// full profile field set, resubmitted and re-validated on every enrollment
// regardless of what the member saved before.
type EnrollRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	IDNumber  string `json:"id_number" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"required"`
	Province  string `json:"province" validate:"required"`
}

// EnrollmentServiceConfig carries the manual payment channel settings.
type EnrollmentServiceConfig struct {
	PaymentMethod string
}

// EnrollmentService governs the enrollment payment lifecycle: creation in
// PENDING, admin confirmation to PAID, admin cancellation to CANCELLED.
type EnrollmentService struct {
	repo       enrollmentRepository
	subjects   subjectReader
	profiles   profileStore
	audit      auditWriter
	references *ReferenceGenerator
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	cfg        EnrollmentServiceConfig
	now        func() time.Time
}

// SetMetrics attaches Prometheus instrumentation. Optional; a nil metrics
// service is a no-op.
func (s *EnrollmentService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, subjects subjectReader, profiles profileStore, audit auditWriter, references *ReferenceGenerator, validate *validator.Validate, logger *zap.Logger, cfg EnrollmentServiceConfig) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if references == nil {
		references = NewReferenceGenerator("")
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = "multicaixa_express"
	}
	return &EnrollmentService{
		repo:       repo,
		subjects:   subjects,
		profiles:   profiles,
		audit:      audit,
		references: references,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Enroll creates exactly one PENDING enrollment for the caller. The profile
// is upserted first (idempotent, keyed by user), the subject price is
// re-fetched server-side for the snapshot, and a fresh payment reference is
// generated. A duplicate (user, subject) pair is reported as "already
// enrolled" rather than a generic failure.
func (s *EnrollmentService) Enroll(ctx context.Context, kind models.SubjectKind, userID string, req EnrollRequest) (*models.EnrollmentView, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid birth date")
	}

	profile := &models.Profile{
		UserID:    userID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		IDNumber:  req.IDNumber,
		BirthDate: &birthDate,
		Address:   req.Address,
		Province:  req.Province,
	}
	if !profile.Complete() {
		return nil, appErrors.Clone(appErrors.ErrIncompleteProfile, "")
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}

	subject, err := s.subjects.FindByID(ctx, kind, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.Published {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "subject not open for enrollment")
	}

	enrollment := &models.Enrollment{
		SubjectID:        subject.ID,
		UserID:           userID,
		PaymentStatus:    models.PaymentPending,
		PaymentReference: s.references.Generate(),
		PaymentAmount:    subject.Price,
		PaymentMethod:    s.cfg.PaymentMethod,
		EnrolledAt:       s.now(),
	}
	if err := s.repo.Create(ctx, kind, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.metrics.RecordEnrollmentCreated(string(kind))

	view := models.NewEnrollmentView(*enrollment, kind)
	return &view, nil
}

// Get returns the caller's enrollment for one subject.
func (s *EnrollmentService) Get(ctx context.Context, kind models.SubjectKind, userID, subjectID string) (*models.EnrollmentView, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	enrollment, err := s.repo.FindByUserAndSubject(ctx, kind, userID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	view := models.NewEnrollmentView(*enrollment, kind)
	return &view, nil
}

// ListMine returns every enrollment the caller holds for one subject kind.
func (s *EnrollmentService) ListMine(ctx context.Context, kind models.SubjectKind, userID string) ([]models.EnrollmentView, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	enrollments, err := s.repo.ListByUser(ctx, kind, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	views := make([]models.EnrollmentView, 0, len(enrollments))
	for _, e := range enrollments {
		views = append(views, models.NewEnrollmentView(e, kind))
	}
	return views, nil
}

// List returns enrollment details for the admin reconciliation view.
func (s *EnrollmentService) List(ctx context.Context, kind models.SubjectKind, filter models.EnrollmentFilter) ([]models.EnrollmentDetailView, *models.Pagination, error) {
	if !kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	enrollments, total, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	views := make([]models.EnrollmentDetailView, 0, len(enrollments))
	for _, d := range enrollments {
		views = append(views, models.NewEnrollmentDetailView(d, kind))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return views, pagination, nil
}

// Confirm transitions one PENDING enrollment to PAID, stamping paid_at.
// The update is a compare-and-swap on (version, PENDING): when two admins
// race on the same row, one of them fails explicitly.
func (s *EnrollmentService) Confirm(ctx context.Context, kind models.SubjectKind, id string, actor *models.JWTClaims) (*models.EnrollmentView, error) {
	paidAt := s.now()
	return s.transition(ctx, kind, id, models.PaymentPaid, &paidAt, models.AuditActionEnrollConfirm, actor)
}

// Cancel transitions one PENDING enrollment to CANCELLED. Cancellation is
// terminal; there is no compensating action.
func (s *EnrollmentService) Cancel(ctx context.Context, kind models.SubjectKind, id string, actor *models.JWTClaims) (*models.EnrollmentView, error) {
	return s.transition(ctx, kind, id, models.PaymentCancelled, nil, models.AuditActionEnrollCancel, actor)
}

func (s *EnrollmentService) transition(ctx context.Context, kind models.SubjectKind, id string, status models.PaymentStatus, paidAt *time.Time, auditAction string, actor *models.JWTClaims) (*models.EnrollmentView, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	enrollment, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.PaymentStatus != models.PaymentPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not pending")
	}

	ok, err := s.repo.Transition(ctx, kind, id, enrollment.Version, status, paidAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment was modified concurrently")
	}

	s.recordTransitionAudit(ctx, kind, enrollment, status, auditAction, actor)
	s.metrics.RecordEnrollmentTransition(string(kind), string(status))

	updated, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}
	view := models.NewEnrollmentView(*updated, kind)
	return &view, nil
}

func (s *EnrollmentService) recordTransitionAudit(ctx context.Context, kind models.SubjectKind, enrollment *models.Enrollment, status models.PaymentStatus, action string, actor *models.JWTClaims) {
	if s.audit == nil {
		return
	}
	var actorID *string
	if actor != nil {
		actorID = &actor.UserID
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"kind":      kind,
		"status":    status,
		"reference": enrollment.PaymentReference,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "enrollment",
		ResourceID: &enrollment.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err), zap.String("enrollment_id", enrollment.ID))
	}
}
