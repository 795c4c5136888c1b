package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ju10/academy-api/internal/models"
)

// ErrDuplicateCertificate marks an (enrollment, kind) uniqueness violation:
// each confirmed enrollment yields at most one certificate.
var ErrDuplicateCertificate = fmt.Errorf("certificate already issued")

// CertificateRepository handles persistence of completion certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = "id, enrollment_id, subject_kind, user_id, member_name, subject_title, code, issued_at"

// Create persists a new certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, enrollment_id, subject_kind, user_id, member_name, subject_title, code, issued_at)
        VALUES (:id, :enrollment_id, :subject_kind, :user_id, :member_name, :subject_title, :code, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return ErrDuplicateCertificate
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindByCode returns a certificate by its public verification code.
func (r *CertificateRepository) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE code = $1", certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, code); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListByUser returns every certificate held by a member.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	query := fmt.Sprintf("SELECT %s FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC", certificateColumns)
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, userID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}
