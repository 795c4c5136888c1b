package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/jobs"
	"github.com/ju10/academy-api/pkg/storage"
)

type stubReportRepo struct {
	reports   map[string]*models.ReportJob
	finished  map[string]string
	failed    map[string]string
	processed []string
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{
		reports:  make(map[string]*models.ReportJob),
		finished: make(map[string]string),
		failed:   make(map[string]string),
	}
}

func (m *stubReportRepo) Create(ctx context.Context, job *models.ReportJob) error {
	m.reports[job.ID] = job
	return nil
}

func (m *stubReportRepo) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if j, ok := m.reports[id]; ok {
		return j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubReportRepo) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	m.processed = append(m.processed, id)
	if j, ok := m.reports[id]; ok {
		j.Status = status
	}
	return nil
}

func (m *stubReportRepo) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	m.finished[id] = resultURL
	if j, ok := m.reports[id]; ok {
		j.Status = models.ReportStatusFinished
		j.ResultURL = &resultURL
	}
	return nil
}

func (m *stubReportRepo) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	m.failed[id] = message
	if j, ok := m.reports[id]; ok {
		j.Status = models.ReportStatusFailed
	}
	return nil
}

type stubReportLister struct {
	details []models.EnrollmentDetail
}

func (m *stubReportLister) List(ctx context.Context, kind models.SubjectKind, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if filter.Page > 1 {
		return nil, len(m.details), nil
	}
	return m.details, len(m.details), nil
}

func newReportServiceForTest(t *testing.T, repo *stubReportRepo, lister *stubReportLister) *ReportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReportService(repo, lister, store, signer, nil, ReportServiceConfig{Workers: 1})
}

func TestReportRequestValidatesParams(t *testing.T) {
	svc := newReportServiceForTest(t, newStubReportRepo(), &stubReportLister{})

	cases := []models.ReportJobParams{
		{SubjectKind: "webinar", Format: models.ReportFormatCSV},
		{SubjectKind: models.SubjectClass, Format: "xlsx"},
		{SubjectKind: models.SubjectClass, Format: models.ReportFormatCSV, Status: "refunded"},
	}
	for _, params := range cases {
		_, err := svc.Request(context.Background(), params, "admin-1")
		require.Error(t, err, "%+v", params)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestReportHandleRendersCSVAndSignsURL(t *testing.T) {
	paidAt := time.Now().UTC()
	repo := newStubReportRepo()
	lister := &stubReportLister{details: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				PaymentReference: "JU10-X-AAAAAA",
				PaymentStatus:    models.PaymentPaid,
				PaymentAmount:    15000,
				EnrolledAt:       paidAt.Add(-time.Hour),
				PaidAt:           &paidAt,
			},
			MemberName:   "Maria dos Santos",
			MemberEmail:  "maria@example.com",
			SubjectTitle: "Mentoria Pro",
		},
	}}
	svc := newReportServiceForTest(t, repo, lister)

	repo.reports["rep-1"] = &models.ReportJob{
		ID:     "rep-1",
		Params: models.ReportJobParams{SubjectKind: models.SubjectMentorship, Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}

	err := svc.handle(context.Background(), jobs.Job{ID: "rep-1", Type: "enrollment-report", Payload: "rep-1"})
	require.NoError(t, err)

	token, ok := repo.finished["rep-1"]
	require.True(t, ok)

	file, _, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "reference", records[0][0])
	assert.Contains(t, records[1], "JU10-X-AAAAAA")
	// mentorship rows use the confirmed vocabulary
	assert.Contains(t, records[1], "confirmed")
}

func TestReportHandleUnknownJobRetriesWithoutMarking(t *testing.T) {
	repo := newStubReportRepo()
	svc := newReportServiceForTest(t, repo, &stubReportLister{})

	err := svc.handle(context.Background(), jobs.Job{ID: "missing", Payload: "missing"})
	require.Error(t, err)
	assert.Empty(t, repo.failed)
}

func TestReportOpenRejectsBadToken(t *testing.T) {
	svc := newReportServiceForTest(t, newStubReportRepo(), &stubReportLister{})

	_, _, err := svc.Open("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportGetUnknownJob(t *testing.T) {
	svc := newReportServiceForTest(t, newStubReportRepo(), &stubReportLister{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
