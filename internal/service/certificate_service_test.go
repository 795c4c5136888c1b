package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/repository"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type stubCertificateRepo struct {
	certs     map[string]*models.Certificate
	createErr error
}

func (m *stubCertificateRepo) Create(ctx context.Context, cert *models.Certificate) error {
	if m.createErr != nil {
		return m.createErr
	}
	if cert.ID == "" {
		cert.ID = "cert-1"
	}
	if m.certs == nil {
		m.certs = make(map[string]*models.Certificate)
	}
	m.certs[cert.Code] = cert
	return nil
}

func (m *stubCertificateRepo) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	if c, ok := m.certs[code]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubCertificateRepo) ListByUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range m.certs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type stubCertEnrollments struct {
	enrollments map[string]*models.Enrollment
}

func (m *stubCertEnrollments) FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func newCertificateServiceForTest(repo *stubCertificateRepo, status models.PaymentStatus) (*CertificateService, *stubAudit) {
	enrollments := &stubCertEnrollments{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", UserID: "user-1", SubjectID: "sub-1", PaymentStatus: status},
	}}
	subjects := &stubSubjects{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Title: "Algebra", Published: true},
	}}
	profiles := &stubProfiles{saved: &models.Profile{UserID: "user-1", FullName: "Maria dos Santos"}}
	audit := &stubAudit{}
	return NewCertificateService(repo, enrollments, subjects, profiles, audit, nil), audit
}

func TestIssueCertificateForPaidEnrollment(t *testing.T) {
	repo := &stubCertificateRepo{}
	svc, audit := newCertificateServiceForTest(repo, models.PaymentPaid)

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	cert, err := svc.Issue(context.Background(), models.SubjectCourse, "enr-1", actor)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^JU10C-[0-9A-Z]{8}$`), cert.Code)
	assert.Equal(t, "Maria dos Santos", cert.MemberName)
	assert.Equal(t, "Algebra", cert.SubjectTitle)
	assert.Equal(t, models.SubjectCourse, cert.SubjectKind)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCertIssue, audit.logs[0].Action)
}

func TestIssueRequiresSettledPayment(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentPending, models.PaymentCancelled} {
		svc, _ := newCertificateServiceForTest(&stubCertificateRepo{}, status)

		_, err := svc.Issue(context.Background(), models.SubjectClass, "enr-1", nil)
		require.Error(t, err, "status %s", status)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	}
}

func TestIssueTwiceIsConflict(t *testing.T) {
	repo := &stubCertificateRepo{createErr: repository.ErrDuplicateCertificate}
	svc, _ := newCertificateServiceForTest(repo, models.PaymentPaid)

	_, err := svc.Issue(context.Background(), models.SubjectClass, "enr-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestVerifyByCode(t *testing.T) {
	repo := &stubCertificateRepo{certs: map[string]*models.Certificate{
		"JU10C-AAAA1111": {ID: "cert-1", Code: "JU10C-AAAA1111", UserID: "user-1", SubjectTitle: "Algebra", IssuedAt: time.Now()},
	}}
	svc := NewCertificateService(repo, &stubCertEnrollments{}, &stubSubjects{}, &stubProfiles{}, nil, nil)

	cert, err := svc.Verify(context.Background(), "JU10C-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", cert.SubjectTitle)

	_, err = svc.Verify(context.Background(), "JU10C-UNKNOWN0")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDownloadIsOwnerOnly(t *testing.T) {
	repo := &stubCertificateRepo{certs: map[string]*models.Certificate{
		"JU10C-AAAA1111": {ID: "cert-1", Code: "JU10C-AAAA1111", UserID: "user-1", MemberName: "Maria dos Santos", SubjectTitle: "Algebra", SubjectKind: models.SubjectCourse, IssuedAt: time.Now()},
	}}
	svc := NewCertificateService(repo, &stubCertEnrollments{}, &stubSubjects{}, &stubProfiles{}, nil, nil)

	_, _, err := svc.Download(context.Background(), "JU10C-AAAA1111", "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	pdf, cert, err := svc.Download(context.Background(), "JU10C-AAAA1111", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "cert-1", cert.ID)
}
