package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/ju10/academy-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO class_enrollments").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "class_enrollments_user_subject_key"})

	err := repo.Create(context.Background(), models.SubjectClass, &models.Enrollment{
		SubjectID:        "sub-1",
		UserID:           "user-1",
		PaymentReference: "JU10-X-AAAAAA",
		PaymentAmount:    15000,
	})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateReferenceCollisionIsNotDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO class_enrollments").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "class_enrollments_payment_reference_key"})

	err := repo.Create(context.Background(), models.SubjectClass, &models.Enrollment{
		SubjectID:        "sub-1",
		UserID:           "user-1",
		PaymentReference: "JU10-X-AAAAAA",
		PaymentAmount:    15000,
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateInsertsPerKindTable(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO mentorship_enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{SubjectID: "sub-1", UserID: "user-1"}
	err := repo.Create(context.Background(), models.SubjectMentorship, enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.PaymentPending, enrollment.PaymentStatus)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByUserAndSubject(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject_id", "user_id", "payment_status", "payment_reference", "payment_amount", "payment_method", "enrolled_at", "paid_at", "version"}).
		AddRow("enr-1", "sub-1", "user-1", models.PaymentPending, "JU10-X-AAAAAA", 15000.0, "multicaixa_express", time.Now(), nil, 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_id, user_id, payment_status, payment_reference, payment_amount, payment_method, enrolled_at, paid_at, version FROM course_enrollments WHERE user_id = $1 AND subject_id = $2")).
		WithArgs("user-1", "sub-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByUserAndSubject(context.Background(), models.SubjectCourse, "user-1", "sub-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.Equal(t, models.PaymentPending, enrollment.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByUserAndSubjectNoRows(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT .+ FROM class_enrollments WHERE user_id").
		WithArgs("user-1", "sub-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserAndSubject(context.Background(), models.SubjectClass, "user-1", "sub-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransitionGuardsVersionAndStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	paidAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_enrollments SET payment_status = $2, paid_at = $3, version = version + 1")).
		WithArgs("enr-1", models.PaymentPaid, paidAt, 0, models.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Transition(context.Background(), models.SubjectClass, "enr-1", 0, models.PaymentPaid, &paidAt)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransitionLosesRace(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE course_enrollments SET payment_status").
		WithArgs("enr-1", models.PaymentCancelled, nil, 3, models.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Transition(context.Background(), models.SubjectCourse, "enr-1", 3, models.PaymentCancelled, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListAppliesStatusFilter(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject_id", "user_id", "payment_status", "payment_reference", "payment_amount", "payment_method", "enrolled_at", "paid_at", "version", "member_name", "member_email", "subject_title"}).
		AddRow("enr-1", "sub-1", "user-1", models.PaymentPaid, "JU10-X-AAAAAA", 15000.0, "multicaixa_express", time.Now(), time.Now(), 1, "Maria dos Santos", "maria@example.com", "Algebra")
	mock.ExpectQuery("SELECT e.id, .+ FROM class_enrollments e").
		WithArgs(models.PaymentPaid).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM class_enrollments e`).
		WithArgs(models.PaymentPaid).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	details, total, err := repo.List(context.Background(), models.SubjectClass, models.EnrollmentFilter{Status: models.PaymentPaid})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, details, 1)
	require.Equal(t, "Algebra", details[0].SubjectTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}
