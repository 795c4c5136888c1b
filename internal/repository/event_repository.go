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

// ErrDuplicateRegistration marks an (event, member) or (event, email)
// uniqueness violation.
var ErrDuplicateRegistration = fmt.Errorf("duplicate event registration")

// EventRepository handles persistence of live events and registrations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns published events with registration counts, soonest first.
func (r *EventRepository) List(ctx context.Context, publishedOnly bool) ([]models.EventSummary, error) {
	query := `SELECT e.id, e.title, e.description, e.starts_at, e.capacity, e.published, e.created_at,
        (SELECT COUNT(*) FROM event_registrations reg WHERE reg.event_id = e.id) AS registrations
        FROM events e`
	if publishedOnly {
		query += " WHERE e.published = TRUE"
	}
	query += " ORDER BY e.starts_at ASC"

	var events []models.EventSummary
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns one event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, title, description, starts_at, capacity, published, created_at FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// CountRegistrations counts registrations for capacity checks.
func (r *EventRepository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count event registrations: %w", err)
	}
	return count, nil
}

// CreateRegistration persists a registration. Uniqueness is enforced per
// (event_id, user_id) for members and (event_id, email) for external
// participants; either violation surfaces as ErrDuplicateRegistration.
func (r *EventRepository) CreateRegistration(ctx context.Context, reg *models.EventRegistration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_registrations (id, event_id, user_id, name, email, phone, external, registered_at)
        VALUES (:id, :event_id, :user_id, :name, :email, :phone, :external, :registered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("create event registration: %w", err)
	}
	return nil
}
