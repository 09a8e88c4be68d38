package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
)

type fakeEntitlements struct {
	sets  map[string]models.VideoSet
	err   error
	calls int
}

func (f *fakeEntitlements) GetForStudent(ctx context.Context, studentID string) (models.VideoSet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sets[studentID].Normalize(), nil
}

func (f *fakeEntitlements) IsUnlocked(ctx context.Context, studentID string, videoID int) (bool, error) {
	set, err := f.GetForStudent(ctx, studentID)
	if err != nil {
		return false, err
	}
	return set.Contains(videoID), nil
}

func TestAdminBypassesEntitlements(t *testing.T) {
	fake := &fakeEntitlements{}
	policy := NewVideoAccessPolicy(fake)
	admin := Principal{UserID: "admin", Role: models.RoleAdmin}

	ok, err := policy.CanPlay(context.Background(), admin, 309)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, fake.calls, "admin access must not consult the store")

	all, videos, err := policy.UnlockedFor(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, all)
	assert.Nil(t, videos)
}

func TestStudentNeedsEntitlement(t *testing.T) {
	fake := &fakeEntitlements{sets: map[string]models.VideoSet{"07": {101, 102}}}
	policy := NewVideoAccessPolicy(fake)
	student := Principal{UserID: "07", Role: models.RoleStudent}
	ctx := context.Background()

	require.NoError(t, policy.ValidatePlayback(ctx, student, 101))

	err := policy.ValidatePlayback(ctx, student, 201)
	assert.ErrorIs(t, err, apperrors.ErrVideoLocked)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = policy.ValidatePlayback(ctx, student, 999)
	assert.ErrorIs(t, err, apperrors.ErrVideoNotFound)

	all, videos, err := policy.UnlockedFor(ctx, student)
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, models.VideoSet{101, 102}, videos)
}

func TestPolicyPropagatesStorageErrors(t *testing.T) {
	storageErr := apperrors.NewStorageUnavailableError("get", errors.New("down"))
	policy := NewVideoAccessPolicy(&fakeEntitlements{err: storageErr})

	err := policy.ValidatePlayback(context.Background(), Principal{UserID: "07", Role: models.RoleStudent}, 101)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestAnonymousPrincipalIsDenied(t *testing.T) {
	policy := NewVideoAccessPolicy(&fakeEntitlements{})
	ok, err := policy.CanPlay(context.Background(), Principal{}, 101)
	require.NoError(t, err)
	assert.False(t, ok)
}
