package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ju10/academy-api/internal/models"
	appErrors "github.com/ju10/academy-api/pkg/errors"
)

// ProfileUpdateRequest carries the full profile field set. Partial updates
// are not supported; the form always resubmits everything.
type ProfileUpdateRequest struct {
	FullName  string `json:"full_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	IDNumber  string `json:"id_number" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"required"`
	Province  string `json:"province" validate:"required"`
}

// ProfileStatus reports the profile together with its enrollment readiness.
type ProfileStatus struct {
	Profile  *models.Profile `json:"profile,omitempty"`
	Complete bool            `json:"complete"`
}

// ProfileService manages the member profile required before enrollment.
type ProfileService struct {
	repo      profileStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo profileStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns the caller's profile and whether it satisfies the enrollment
// precondition. A missing profile is not an error here; it reports as
// incomplete.
func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileStatus, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ProfileStatus{Complete: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return &ProfileStatus{Profile: profile, Complete: profile.Complete()}, nil
}

// Update replaces the caller's profile.
func (s *ProfileService) Update(ctx context.Context, userID string, req ProfileUpdateRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid birth date")
	}
	profile := &models.Profile{
		UserID:    userID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		IDNumber:  req.IDNumber,
		BirthDate: &birthDate,
		Address:   req.Address,
		Province:  req.Province,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return profile, nil
}
