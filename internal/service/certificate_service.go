package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/repository"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/export"
)

type certificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByCode(ctx context.Context, code string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]models.Certificate, error)
}

type certificateEnrollmentReader interface {
	FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Enrollment, error)
}

type certificateProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// CertificateService issues and verifies completion certificates. Issuance
// is an admin action on a settled enrollment; verification is public by
// code so third parties can validate a printed certificate.
type CertificateService struct {
	repo        certificateRepository
	enrollments certificateEnrollmentReader
	subjects    subjectReader
	profiles    certificateProfileReader
	audit       auditWriter
	exporter    *export.CertificateExporter
	logger      *zap.Logger
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, enrollments certificateEnrollmentReader, subjects subjectReader, profiles certificateProfileReader, audit auditWriter, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:        repo,
		enrollments: enrollments,
		subjects:    subjects,
		profiles:    profiles,
		audit:       audit,
		exporter:    export.NewCertificateExporter(),
		logger:      logger,
	}
}

// Issue creates a certificate for a settled enrollment. The enrollment must
// be PAID; issuing twice for the same enrollment is a conflict.
func (s *CertificateService) Issue(ctx context.Context, kind models.SubjectKind, enrollmentID string, actor *models.JWTClaims) (*models.Certificate, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	enrollment, err := s.enrollments.FindByID(ctx, kind, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.PaymentStatus != models.PaymentPaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment payment not confirmed")
	}

	subject, err := s.subjects.FindByID(ctx, kind, enrollment.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	memberName := ""
	if profile, err := s.profiles.FindByUserID(ctx, enrollment.UserID); err == nil {
		memberName = profile.FullName
	}

	cert := &models.Certificate{
		EnrollmentID: enrollment.ID,
		SubjectKind:  kind,
		UserID:       enrollment.UserID,
		MemberName:   memberName,
		SubjectTitle: subject.Title,
		Code:         "JU10C-" + randomBase36(8),
		IssuedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		if errors.Is(err, repository.ErrDuplicateCertificate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "certificate already issued for this enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}

	if s.audit != nil && actor != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionCertIssue,
			Resource:   "certificate",
			ResourceID: &cert.ID,
			NewValues:  []byte(`{"code":"` + cert.Code + `"}`),
		}); err != nil {
			s.logger.Warn("failed to record certificate audit log", zap.Error(err))
		}
	}

	return cert, nil
}

// Verify looks up a certificate by its public code.
func (s *CertificateService) Verify(ctx context.Context, code string) (*models.Certificate, error) {
	cert, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// ListMine returns the caller's certificates.
func (s *CertificateService) ListMine(ctx context.Context, userID string) ([]models.Certificate, error) {
	certs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, nil
}

// Download renders the certificate PDF. Only the holder may download it;
// verification by code stays public but returns metadata, not the document.
func (s *CertificateService) Download(ctx context.Context, code, userID string) ([]byte, *models.Certificate, error) {
	cert, err := s.Verify(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if cert.UserID != userID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another member")
	}
	pdf, err := s.exporter.Render(export.CertificateData{
		MemberName:       cert.MemberName,
		SubjectTitle:     cert.SubjectTitle,
		SubjectKind:      string(cert.SubjectKind),
		VerificationCode: cert.Code,
		IssuedAt:         cert.IssuedAt,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return pdf, cert, nil
}
