package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/export"
	"github.com/ju10/academy-api/pkg/jobs"
	"github.com/ju10/academy-api/pkg/storage"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
}

type reportEnrollmentLister interface {
	List(ctx context.Context, kind models.SubjectKind, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// reportPageSize bounds each repository read while draining all rows.
const reportPageSize = 500

// ReportServiceConfig carries export worker settings.
type ReportServiceConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	// Retention bounds how long rendered artifacts stay on disk. Files
	// older than this are swept periodically.
	Retention time.Duration
}

// cleanupInterval paces the artifact retention sweep.
const cleanupInterval = time.Hour

// ReportService produces enrollment exports asynchronously. Requests are
// persisted, handed to an in-process worker pool, rendered to CSV or PDF,
// written to disk and published behind an expiring signed URL.
type ReportService struct {
	repo        reportRepository
	enrollments reportEnrollmentLister
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	queue       *jobs.Queue
	maxRetries  int
	retention   time.Duration
	stopCleanup chan struct{}
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportService constructs ReportService and its worker queue. Call
// Start before accepting requests and Stop on shutdown.
func NewReportService(repo reportRepository, enrollments reportEnrollmentLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	s := &ReportService{
		repo:        repo,
		enrollments: enrollments,
		store:       store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		maxRetries:  cfg.MaxRetries,
		retention:   cfg.Retention,
		stopCleanup: make(chan struct{}),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("enrollment-reports", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and the artifact retention sweep.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the export workers and halts the retention sweep.
func (s *ReportService) Stop() {
	close(s.stopCleanup)
	s.queue.Stop()
}

func (s *ReportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			removed, err := s.store.CleanupOlderThan(s.retention)
			if err != nil {
				s.logger.Warn("report artifact cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("removed expired report artifacts", zap.Int("count", removed))
			}
		}
	}
}

// Request persists a report job and enqueues it for rendering.
func (s *ReportService) Request(ctx context.Context, params models.ReportJobParams, createdBy string) (*models.ReportJob, error) {
	if !params.SubjectKind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind")
	}
	if params.Format != models.ReportFormatCSV && params.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if params.Status != "" {
		if _, ok := models.ParseWireStatus(params.Status); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
	}

	job := &models.ReportJob{
		ID:        uuid.NewString(),
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "enrollment-report", Payload: job.ID}); err != nil {
		msg := "export queue is full"
		if markErr := s.repo.MarkFailed(ctx, job.ID, msg, s.now()); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.Error(markErr), zap.String("job_id", job.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}
	return job, nil
}

// Get returns a report job's status and result URL.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// Open validates a signed download token and opens the underlying file.
func (s *ReportService) Open(token string) (*os.File, string, error) {
	reportID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		s.logger.Warn("report file missing", zap.String("report_id", reportID), zap.String("path", relPath), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report file not found")
	}
	return file, relPath, nil
}

func (s *ReportService) handle(ctx context.Context, job jobs.Job) error {
	reportID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected report payload %T", job.Payload)
	}

	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", reportID, err)
	}
	if err := s.repo.UpdateStatus(ctx, reportID, models.ReportStatusProcessing); err != nil {
		s.logger.Warn("failed to mark report processing", zap.Error(err), zap.String("job_id", reportID))
	}

	if err := s.render(ctx, report); err != nil {
		// Last attempt: the queue will drop the job, so persist the failure.
		if job.Attempt >= s.maxRetries {
			if markErr := s.repo.MarkFailed(ctx, reportID, err.Error(), s.now()); markErr != nil {
				s.logger.Warn("failed to mark report failed", zap.Error(markErr), zap.String("job_id", reportID))
			}
		}
		return err
	}
	return nil
}

func (s *ReportService) render(ctx context.Context, report *models.ReportJob) error {
	dataset, err := s.collect(ctx, report.Params)
	if err != nil {
		return err
	}

	var payload []byte
	switch report.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Enrollments - %s", report.Params.SubjectKind))
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return fmt.Errorf("render report %s: %w", report.ID, err)
	}

	filename := fmt.Sprintf("enrollments-%s-%s.%s", report.Params.SubjectKind, report.ID, report.Params.Format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return fmt.Errorf("store report %s: %w", report.ID, err)
	}

	url, _, err := s.signer.Generate(report.ID, relPath)
	if err != nil {
		return fmt.Errorf("sign report url %s: %w", report.ID, err)
	}
	if err := s.repo.MarkFinished(ctx, report.ID, url, s.now()); err != nil {
		return fmt.Errorf("finish report %s: %w", report.ID, err)
	}
	return nil
}

func (s *ReportService) collect(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	dataset := export.Dataset{
		Headers: []string{"reference", "member", "email", "subject", "status", "amount", "enrolled_at", "paid_at"},
	}

	filter := models.EnrollmentFilter{PageSize: reportPageSize, Page: 1}
	if params.Status != "" {
		if status, ok := models.ParseWireStatus(params.Status); ok {
			filter.Status = status
		}
	}

	for {
		page, total, err := s.enrollments.List(ctx, params.SubjectKind, filter)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("list enrollments for report: %w", err)
		}
		for _, e := range page {
			paidAt := ""
			if e.PaidAt != nil {
				paidAt = e.PaidAt.Format(time.RFC3339)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"reference":   e.PaymentReference,
				"member":      e.MemberName,
				"email":       e.MemberEmail,
				"subject":     e.SubjectTitle,
				"status":      e.PaymentStatus.WireStatus(params.SubjectKind),
				"amount":      fmt.Sprintf("%.2f", e.PaymentAmount),
				"enrolled_at": e.EnrolledAt.Format(time.RFC3339),
				"paid_at":     paidAt,
			})
		}
		if len(dataset.Rows) >= total || len(page) == 0 {
			return dataset, nil
		}
		filter.Page++
	}
}
