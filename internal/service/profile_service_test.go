package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/ju10/academy-api/pkg/errors"
)

func TestProfileGetReportsMissingAsIncomplete(t *testing.T) {
	svc := NewProfileService(&stubProfiles{}, nil, nil)

	status, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, status.Complete)
	assert.Nil(t, status.Profile)
}

func TestProfileUpdateThenGetIsComplete(t *testing.T) {
	store := &stubProfiles{}
	svc := NewProfileService(store, nil, nil)

	profile, err := svc.Update(context.Background(), "user-1", ProfileUpdateRequest{
		FullName:  "Maria dos Santos",
		Phone:     "+244923000111",
		IDNumber:  "004563219LA041",
		BirthDate: "1999-04-17",
		Address:   "Rua da Missao 12",
		Province:  "Luanda",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.UserID)

	status, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, status.Complete)
	require.NotNil(t, status.Profile)
	assert.Equal(t, "Luanda", status.Profile.Province)
}

func TestProfileUpdateValidatesBirthDate(t *testing.T) {
	svc := NewProfileService(&stubProfiles{}, nil, nil)

	_, err := svc.Update(context.Background(), "user-1", ProfileUpdateRequest{
		FullName:  "Maria dos Santos",
		Phone:     "+244923000111",
		IDNumber:  "004563219LA041",
		BirthDate: "17-04-1999",
		Address:   "Rua da Missao 12",
		Province:  "Luanda",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
