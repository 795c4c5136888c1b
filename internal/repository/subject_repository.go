package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ju10/academy-api/internal/models"
)

// SubjectRepository reads the catalog tables (class groups, courses,
// mentorships) and course lessons.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, title, description, price, capacity, published, created_at, updated_at"

// FindByID returns one subject. The price read here is the authoritative
// value snapshotted into new enrollments; client-supplied amounts are never
// trusted.
func (r *SubjectRepository) FindByID(ctx context.Context, kind models.SubjectKind, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", subjectColumns, subjectTable(kind))
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	subject.Kind = kind
	return &subject, nil
}

// List returns catalog entries with their confirmed-enrollment occupancy.
func (r *SubjectRepository) List(ctx context.Context, kind models.SubjectKind, filter models.SubjectFilter) ([]models.SubjectSummary, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PublishedOnly {
		conditions = append(conditions, "s.published = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("s.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT s.id, s.title, s.description, s.price, s.capacity, s.published, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM %s e WHERE e.subject_id = s.id AND e.payment_status = 'PAID') AS occupancy
        FROM %s s%s ORDER BY s.created_at DESC LIMIT %d OFFSET %d`, kind.EnrollmentTable(), subjectTable(kind), clause, size, offset)

	var subjects []models.SubjectSummary
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s catalog: %w", kind, err)
	}
	for i := range subjects {
		subjects[i].Kind = kind
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s s%s", subjectTable(kind), clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s catalog: %w", kind, err)
	}
	return subjects, total, nil
}

// FindLesson returns one course lesson.
func (r *SubjectRepository) FindLesson(ctx context.Context, courseID, lessonID string) (*models.Lesson, error) {
	const query = `SELECT id, course_id, title, content, position, free_preview, created_at
        FROM lessons WHERE id = $1 AND course_id = $2`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, lessonID, courseID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessons returns a course's lessons in order, without content bodies.
func (r *SubjectRepository) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	const query = `SELECT id, course_id, title, '' AS content, position, free_preview, created_at
        FROM lessons WHERE course_id = $1 ORDER BY position ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}
