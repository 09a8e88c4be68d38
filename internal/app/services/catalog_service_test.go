package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appauth "github.com/yigit/musicschool/internal/app/auth"
	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/auth"
	"github.com/yigit/musicschool/internal/pkg/kvstore/memstore"
)

var (
	studentPrincipal = appauth.Principal{UserID: "07", Role: models.RoleStudent}
	adminPrincipal   = appauth.Principal{UserID: "admin", Role: models.RoleAdmin}
)

func newCatalogService(f *fixture) (*CatalogService, *repositories.VideoLinkRepository) {
	links := repositories.NewVideoLinkRepository(f.backend)
	policy := appauth.NewVideoAccessPolicy(f.svc)
	return NewCatalogService(f.svc, policy, links, zerolog.Nop()), links
}

func unlockedIDs(modules []dto.CatalogModuleResponse) []int {
	var ids []int
	for _, m := range modules {
		for _, v := range m.Videos {
			if v.Unlocked {
				ids = append(ids, v.ID)
			}
		}
	}
	return ids
}

func TestCatalogModulesFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	svc, _ := newCatalogService(f)
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 301}))

	modules, err := svc.Modules(ctx, studentPrincipal)
	require.NoError(t, err)
	require.Len(t, modules, 4)
	assert.Equal(t, []int{101, 301}, unlockedIDs(modules))

	modules, err = svc.Modules(ctx, adminPrincipal)
	require.NoError(t, err)
	assert.Len(t, unlockedIDs(modules), 30)
}

func TestCatalogPlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	svc, _ := newCatalogService(f)
	require.NoError(t, f.svc.Grant(ctx, "07", 101))

	_, err := svc.Play(ctx, studentPrincipal, 101)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound, "no link configured yet")

	require.NoError(t, svc.SetLink(ctx, 101, "https://www.youtube.com/watch?v=abc123"))

	resp, err := svc.Play(ctx, studentPrincipal, 101)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", resp.URL)
	assert.Equal(t, 101, resp.Video.ID)

	require.NoError(t, svc.SetLink(ctx, 102, "https://youtu.be/xyz"))
	_, err = svc.Play(ctx, studentPrincipal, 102)
	assert.ErrorIs(t, err, apperrors.ErrVideoLocked)

	resp, err = svc.Play(ctx, adminPrincipal, 102)
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/xyz", resp.URL)

	_, err = svc.Play(ctx, studentPrincipal, 999)
	assert.ErrorIs(t, err, apperrors.ErrVideoNotFound)
}

func TestCatalogSetLinkValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, _ := newCatalogService(f)

	assert.ErrorIs(t, svc.SetLink(ctx, 101, "https://vimeo.com/1"), apperrors.ErrValidationFailed)
	assert.ErrorIs(t, svc.SetLink(ctx, 101, "youtube.com/watch"), apperrors.ErrValidationFailed)
	assert.ErrorIs(t, svc.SetLink(ctx, 999, "https://youtu.be/x"), apperrors.ErrVideoNotFound)

	links, err := svc.Links(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCatalogPurgeVideo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07", "09")
	svc, links := newCatalogService(f)

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 203}))
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "09", []int{203}))
	require.NoError(t, svc.SetLink(ctx, 203, "https://youtu.be/acordes"))

	affected, err := svc.PurgeVideo(ctx, 203)
	require.NoError(t, err)
	assert.Equal(t, 2, affected)
	f.requireSet(t, "07", 101)
	f.requireSet(t, "09")

	_, found, err := links.Get(ctx, 203)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	students := newStudentService(f)
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "s", AccessTokenExp: time.Hour, TokenIssuer: "test"})
	svc := NewAuthService(f.directory, appauth.NewVideoAccessPolicy(f.svc), jwtService, zerolog.Nop())

	student, err := students.Create(ctx, createRequest("ana"))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Login: "ana", Password: "violao123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.Equal(t, int64(3600), resp.Token.ExpiresIn)
	assert.Equal(t, student.ID, resp.User.ID)

	claims, err := jwtService.ValidateAndExtractClaims(resp.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, student.ID, claims.UserID)
	assert.Equal(t, "student", claims.Role)

	_, err = svc.Login(ctx, &dto.LoginRequest{Login: "ana", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &dto.LoginRequest{Login: "nobody", Password: "violao123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = students.Update(ctx, student.ID, &dto.UpdateStudentRequest{Name: "Ana", Login: "ana", Status: "inactive"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, &dto.LoginRequest{Login: "ana", Password: "violao123"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestAuthServiceMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07", "admin")
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "s", AccessTokenExp: time.Hour, TokenIssuer: "test"})
	svc := NewAuthService(f.directory, appauth.NewVideoAccessPolicy(f.svc), jwtService, zerolog.Nop())
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{102, 101}))

	me, err := svc.Me(ctx, studentPrincipal)
	require.NoError(t, err)
	assert.False(t, me.AllVideos)
	assert.Equal(t, []int{101, 102}, me.UnlockedVideos)
	assert.Equal(t, "07", me.Profile.ID)

	me, err = svc.Me(ctx, adminPrincipal)
	require.NoError(t, err)
	assert.True(t, me.AllVideos)
	assert.Len(t, me.UnlockedVideos, 30)
}

func TestStatusService(t *testing.T) {
	store := memstore.New()
	svc := NewStatusService(store, "memory", "kv", time.Second)

	status := svc.Storage(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, "memory", status.Backend)
	assert.Equal(t, "kv", status.Directory)
	assert.Empty(t, status.Error)

	require.NoError(t, store.Close())
	status = svc.Storage(context.Background())
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.Error)
}
