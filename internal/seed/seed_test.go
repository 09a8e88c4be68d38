package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/repositories"
	appServices "github.com/yigit/musicschool/internal/app/services"
	"github.com/yigit/musicschool/internal/pkg/events"
	"github.com/yigit/musicschool/internal/pkg/kvstore/memstore"
)

func newStudentService(t *testing.T) (*appServices.StudentService, repositories.StudentRepository) {
	t.Helper()
	store := memstore.New()
	students := repositories.NewKVStudentRepository(store)
	entitlements := appServices.NewEntitlementStore(store, students, events.NewLocalBus(),
		appServices.EntitlementOptions{}, zerolog.Nop())
	return appServices.NewStudentService(students, entitlements, zerolog.Nop()), students
}

func TestCreateDefaultDataSeedsAdminOnce(t *testing.T) {
	ctx := context.Background()
	svc, students := newStudentService(t)
	admin := AdminAccount{Login: "admin", Password: "change-me", Name: "Administrator"}

	require.NoError(t, CreateDefaultData(ctx, svc, admin, zerolog.Nop()))
	require.NoError(t, CreateDefaultData(ctx, svc, admin, zerolog.Nop()))

	got, err := students.GetByLogin(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, models.StudentStatusActive, got.Status)

	ids, err := students.ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCreateDefaultDataWithoutPassword(t *testing.T) {
	ctx := context.Background()
	svc, students := newStudentService(t)

	require.NoError(t, CreateDefaultData(ctx, svc, AdminAccount{Login: "admin"}, zerolog.Nop()))

	_, err := students.GetByLogin(ctx, "admin")
	assert.Error(t, err)
}
