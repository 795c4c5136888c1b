package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ju10/academy-api/internal/models"
)

const uniqueViolation = "23505"

// userSubjectConstraintSuffix matches the named UNIQUE (user_id, subject_id)
// constraints in scripts/schema.sql across the three enrollment tables.
const userSubjectConstraintSuffix = "_user_subject_key"

// ErrDuplicateEnrollment marks a (user, subject) uniqueness violation so the
// service layer can surface "already enrolled" instead of a generic failure.
var ErrDuplicateEnrollment = fmt.Errorf("duplicate enrollment")

// EnrollmentRepository handles persistence of enrollments. The three subject
// kinds live in physically separate tables sharing one shape, so every query
// is parameterized by kind.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = "id, subject_id, user_id, payment_status, payment_reference, payment_amount, payment_method, enrolled_at, paid_at, version"

// Create persists a new enrollment row. A uniqueness violation on
// (user_id, subject_id) is reported as ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, kind models.SubjectKind, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentPending
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, subject_id, user_id, payment_status, payment_reference, payment_amount, payment_method, enrolled_at, paid_at, version)
        VALUES (:id, :subject_id, :user_id, :payment_status, :payment_reference, :payment_amount, :payment_method, :enrolled_at, :paid_at, :version)`, kind.EnrollmentTable())
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		// Only the (user_id, subject_id) constraint means "already
		// enrolled"; a payment_reference collision is a retryable failure.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation &&
			strings.HasSuffix(pqErr.Constraint, userSubjectConstraintSuffix) {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create %s enrollment: %w", kind, err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", enrollmentColumns, kind.EnrollmentTable())
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByUserAndSubject returns the enrollment for a (user, subject) pair.
func (r *EnrollmentRepository) FindByUserAndSubject(ctx context.Context, kind models.SubjectKind, userID, subjectID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 AND subject_id = $2", enrollmentColumns, kind.EnrollmentTable())
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, subjectID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByUser returns every enrollment a member holds for one subject kind.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, kind models.SubjectKind, userID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY enrolled_at DESC", enrollmentColumns, kind.EnrollmentTable())
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list %s enrollments for user: %w", kind, err)
	}
	return enrollments, nil
}

// List returns enrollment details filtered by the provided criteria, joined
// with member and subject info for the admin reconciliation view.
func (r *EnrollmentRepository) List(ctx context.Context, kind models.SubjectKind, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := fmt.Sprintf(`FROM %s e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN %s s ON s.id = e.subject_id`, kind.EnrollmentTable(), subjectTable(kind))

	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("e.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.payment_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at": "e.enrolled_at",
		"paid_at":     "e.paid_at",
		"member_name": "u.full_name",
		"amount":      "e.payment_amount",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.subject_id, e.user_id, e.payment_status, e.payment_reference, e.payment_amount, e.payment_method, e.enrolled_at, e.paid_at, e.version,
        u.full_name AS member_name, u.email AS member_email, s.title AS subject_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s enrollments: %w", kind, err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s enrollments: %w", kind, err)
	}
	return enrollments, total, nil
}

// Transition performs a compare-and-swap status update. It only touches rows
// still in PENDING at the expected version, so a concurrent admin action
// loses explicitly instead of overwriting. Returns true when a row changed.
func (r *EnrollmentRepository) Transition(ctx context.Context, kind models.SubjectKind, id string, version int, status models.PaymentStatus, paidAt *time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET payment_status = $2, paid_at = $3, version = version + 1
        WHERE id = $1 AND version = $4 AND payment_status = $5`, kind.EnrollmentTable())
	res, err := r.db.ExecContext(ctx, query, id, status, paidAt, version, models.PaymentPending)
	if err != nil {
		return false, fmt.Errorf("transition %s enrollment: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition %s enrollment rows: %w", kind, err)
	}
	return affected == 1, nil
}

// CountConfirmedBySubject counts paid enrollments for occupancy displays.
func (r *EnrollmentRepository) CountConfirmedBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE subject_id = $1 AND payment_status = $2", kind.EnrollmentTable())
	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID, models.PaymentPaid); err != nil {
		return 0, fmt.Errorf("count confirmed %s enrollments: %w", kind, err)
	}
	return count, nil
}

func subjectTable(kind models.SubjectKind) string {
	switch kind {
	case models.SubjectClass:
		return "class_groups"
	case models.SubjectCourse:
		return "courses"
	case models.SubjectMentorship:
		return "mentorships"
	}
	return ""
}
