package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/repository"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, publishedOnly bool) ([]models.EventSummary, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
	CreateRegistration(ctx context.Context, reg *models.EventRegistration) error
}

// EventRegisterRequest registers an external (non-member) participant.
type EventRegisterRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// EventService handles the free live-event flow: listing with countdown
// data, member registration, and external registration by contact details.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs EventService.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns published events, soonest first.
func (s *EventService) List(ctx context.Context) ([]models.EventSummary, error) {
	events, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Get returns one published event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}

// RegisterMember registers an authenticated member for an event.
func (s *EventService) RegisterMember(ctx context.Context, eventID string, user *models.JWTClaims) (*models.EventRegistration, error) {
	reg := &models.EventRegistration{
		EventID: eventID,
		UserID:  &user.UserID,
		Name:    user.FullName,
		Email:   user.Email,
	}
	return s.register(ctx, eventID, reg)
}

// RegisterExternal registers a participant who has no account. Only name,
// email and phone are collected; no account is created.
func (s *EventService) RegisterExternal(ctx context.Context, eventID string, req EventRegisterRequest) (*models.EventRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	reg := &models.EventRegistration{
		EventID:  eventID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		External: true,
	}
	return s.register(ctx, eventID, reg)
}

func (s *EventService) register(ctx context.Context, eventID string, reg *models.EventRegistration) (*models.EventRegistration, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(event.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event has already started")
	}
	if event.Capacity > 0 {
		count, err := s.repo.CountRegistrations(ctx, eventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check event capacity")
		}
		if count >= event.Capacity {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is full")
		}
	}
	if err := s.repo.CreateRegistration(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicateRegistration) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for event")
	}
	return reg, nil
}
