package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/events"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
	"github.com/yigit/musicschool/internal/pkg/kvstore/memstore"
)

var errInjected = errors.New("injected backend failure")

// faultyStore fails the next N calls of an operation.
type faultyStore struct {
	kvstore.Store

	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	block    map[string]bool
}

func newFaultyStore(store kvstore.Store) *faultyStore {
	return &faultyStore{
		Store:    store,
		failures: make(map[string]int),
		calls:    make(map[string]int),
		block:    make(map[string]bool),
	}
}

func (f *faultyStore) failNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

func (f *faultyStore) blockUntilDeadline(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[op] = true
}

func (f *faultyStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultyStore) check(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	blocked := f.block[op]
	fail := f.failures[op] > 0
	if fail {
		f.failures[op]--
	}
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errInjected
	}
	return nil
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.check(ctx, "get"); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := f.check(ctx, "list"); err != nil {
		return nil, err
	}
	return f.Store.List(ctx, prefix)
}

func (f *faultyStore) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error {
	if err := f.check(ctx, "cas"); err != nil {
		return err
	}
	return f.Store.CompareAndSwap(ctx, key, oldValue, newValue)
}

// faultyDirectory fails the next N SetUnlockedVideos calls and can run a hook
// before Delete.
type faultyDirectory struct {
	repositories.StudentRepository

	mu           sync.Mutex
	setFailures  int
	beforeDelete func()
}

func (d *faultyDirectory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	hook := d.beforeDelete
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return d.StudentRepository.Delete(ctx, id)
}

func (d *faultyDirectory) failSets(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setFailures = n
}

func (d *faultyDirectory) SetUnlockedVideos(ctx context.Context, id string, videos models.VideoSet) error {
	d.mu.Lock()
	fail := d.setFailures > 0
	if fail {
		d.setFailures--
	}
	d.mu.Unlock()
	if fail {
		return errInjected
	}
	return d.StudentRepository.SetUnlockedVideos(ctx, id, videos)
}

type fixture struct {
	backend   *memstore.Store
	faulty    *faultyStore
	directory *faultyDirectory
	bus       *events.LocalBus
	svc       *entitlementStore
}

func newFixture(t *testing.T, studentIDs ...string) *fixture {
	t.Helper()

	backend := memstore.New()
	faulty := newFaultyStore(backend)
	directory := &faultyDirectory{StudentRepository: repositories.NewKVStudentRepository(memstore.New())}
	bus := events.NewLocalBus()

	for _, id := range studentIDs {
		require.NoError(t, directory.Create(context.Background(), &models.Student{
			ID:     id,
			Name:   "Aluno " + id,
			Login:  "aluno" + id,
			Status: models.StudentStatusActive,
			Role:   models.RoleStudent,
		}))
	}

	svc := NewEntitlementStore(faulty, directory, bus, EntitlementOptions{
		CallTimeout: 200 * time.Millisecond,
		Parallelism: 4,
	}, zerolog.Nop()).(*entitlementStore)

	return &fixture{backend: backend, faulty: faulty, directory: directory, bus: bus, svc: svc}
}

func (f *fixture) requireSet(t *testing.T, studentID string, expected ...int) {
	t.Helper()
	ctx := context.Background()

	got, err := f.svc.GetForStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.NewVideoSet(expected...), got, "entitlement store")

	field, err := f.directory.GetUnlockedVideos(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.NewVideoSet(expected...), field, "student record")
}

func (f *fixture) record(t *testing.T, studentID string) *models.EntitlementRecord {
	t.Helper()
	raw, err := f.backend.Get(context.Background(), models.EntitlementKey(studentID))
	require.NoError(t, err)
	rec, err := models.DecodeEntitlementRecord(raw)
	require.NoError(t, err)
	return rec
}

func (f *fixture) hasRecord(studentID string) bool {
	_, err := f.backend.Get(context.Background(), models.EntitlementKey(studentID))
	return err == nil
}

func (f *fixture) writeRecord(t *testing.T, rec *models.EntitlementRecord) {
	t.Helper()
	raw, err := rec.Encode()
	require.NoError(t, err)
	require.NoError(t, f.backend.Set(context.Background(), models.EntitlementKey(rec.StudentID), raw))
}

func TestEntitlementLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 102}))
	f.requireSet(t, "07", 101, 102)

	require.NoError(t, f.svc.Grant(ctx, "07", 103))
	f.requireSet(t, "07", 101, 102, 103)

	require.NoError(t, f.svc.Revoke(ctx, "07", 101))
	f.requireSet(t, "07", 102, 103)

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{201}))
	f.requireSet(t, "07", 201)

	err := f.svc.Grant(ctx, "99", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	videos, err := f.svc.GetForStudent(ctx, "99")
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.False(t, f.hasRecord("99"))

	drifts, err := f.svc.FindDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestGrantAndRevokeProperties(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	for _, videoID := range []int{101, 205, 309, 406} {
		require.NoError(t, f.svc.Grant(ctx, "07", videoID))
		unlocked, err := f.svc.IsUnlocked(ctx, "07", videoID)
		require.NoError(t, err)
		assert.True(t, unlocked, "video %d after grant", videoID)

		drifts, err := f.svc.FindDrift(ctx)
		require.NoError(t, err)
		assert.Empty(t, drifts)
	}

	for _, videoID := range []int{205, 999} {
		require.NoError(t, f.svc.Revoke(ctx, "07", videoID))
		unlocked, err := f.svc.IsUnlocked(ctx, "07", videoID)
		require.NoError(t, err)
		assert.False(t, unlocked, "video %d after revoke", videoID)
	}
	f.requireSet(t, "07", 101, 309, 406)
}

func TestMutationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	revision := f.record(t, "07").Revision

	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	f.requireSet(t, "07", 101)
	assert.Equal(t, revision, f.record(t, "07").Revision, "no-op grant must not write")

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{202, 201, 202}))
	revision = f.record(t, "07").Revision
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{201, 202}))
	f.requireSet(t, "07", 201, 202)
	assert.Equal(t, revision, f.record(t, "07").Revision)

	require.NoError(t, f.svc.Revoke(ctx, "07", 101))
	assert.Equal(t, revision, f.record(t, "07").Revision)
}

func TestRecordFormat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	rec := f.record(t, "07")
	assert.Equal(t, models.EntitlementSchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "07", rec.StudentID)
	assert.Equal(t, models.VideoSet{101}, rec.VideoIDs)
	assert.Equal(t, int64(2), rec.Revision, "stage and commit each bump the revision")
	assert.Nil(t, rec.Pending)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	for _, videoID := range []int{0, -1} {
		assert.ErrorIs(t, f.svc.Grant(ctx, "07", videoID), apperrors.ErrValidationFailed)
		assert.ErrorIs(t, f.svc.Revoke(ctx, "07", videoID), apperrors.ErrValidationFailed)
	}
	assert.ErrorIs(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 0}), apperrors.ErrValidationFailed)
	assert.ErrorIs(t, f.svc.Grant(ctx, "", 101), apperrors.ErrValidationFailed)
	_, err := f.svc.PurgeVideo(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	assert.False(t, f.hasRecord("07"))
}

func TestUnknownStudentLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.svc.Grant(ctx, "99", 101), apperrors.ErrStudentNotFound)
	assert.ErrorIs(t, f.svc.Revoke(ctx, "99", 101), apperrors.ErrStudentNotFound)
	assert.ErrorIs(t, f.svc.ReplaceForStudent(ctx, "99", []int{101}), apperrors.ErrStudentNotFound)

	assert.False(t, f.hasRecord("99"))
	assert.Equal(t, 0, f.backend.Len())
}

func TestConcurrentGrantsAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	var wg sync.WaitGroup
	for _, videoID := range []int{201, 202} {
		videoID := videoID
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.Grant(ctx, "07", videoID))
		}()
	}
	wg.Wait()
	f.requireSet(t, "07", 201, 202)

	ids := make([]int, 0, 40)
	for i := 1; i <= 40; i++ {
		ids = append(ids, 1000+i)
	}
	for _, videoID := range ids {
		videoID := videoID
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.Grant(ctx, "07", videoID))
		}()
	}
	wg.Wait()
	f.requireSet(t, "07", append([]int{201, 202}, ids...)...)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestStoresShareBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	// a second instance over the same backend stands in for another process
	other := NewEntitlementStore(f.faulty, f.directory, nil, EntitlementOptions{}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		require.NoError(t, f.svc.Grant(ctx, "07", 100+i))
		require.NoError(t, other.Grant(ctx, "07", 200+i))
	}
	require.NoError(t, other.Revoke(ctx, "07", 100))

	got, err := f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSet{101, 102, 103, 104, 200, 201, 202, 203, 204}, got)

	drifts, err := other.FindDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestGetAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07", "08", "09")

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 102}))
	require.NoError(t, f.svc.Grant(ctx, "08", 201))
	require.NoError(t, f.backend.Set(ctx, models.EntitlementKey("09"), []byte("{broken")))

	all := f.svc.GetAll(ctx)
	assert.Equal(t, map[string]models.VideoSet{
		"07": {101, 102},
		"08": {201},
	}, all)
}

func TestGetAllSwallowsBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	require.NoError(t, f.svc.Grant(ctx, "07", 101))

	f.faulty.failNext("list", 2)
	assert.Empty(t, f.svc.GetAll(ctx))

	f.faulty.failNext("get", 2)
	assert.Empty(t, f.svc.GetAll(ctx))

	assert.Len(t, f.svc.GetAll(ctx), 1)
}

func TestGetForStudentTolerance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	videos, err := f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSet{}, videos)

	require.NoError(t, f.backend.Set(ctx, models.EntitlementKey("07"), []byte(`{"schemaVersion":9,"videoIds":[101]}`)))
	videos, err = f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Empty(t, videos)

	// legacy record without a version field
	require.NoError(t, f.backend.Set(ctx, models.EntitlementKey("07"), []byte(`{"studentId":"07","videoIds":[102,101]}`)))
	videos, err = f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSet{101, 102}, videos)
}

func TestNewerSchemaRecordIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	newer := []byte(`{"schemaVersion":2,"videoIds":[101,102,103]}`)
	require.NoError(t, f.backend.Set(ctx, models.EntitlementKey("07"), newer))

	videos, err := f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Empty(t, videos)

	err = f.svc.Grant(ctx, "07", 201)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, models.ErrUnsupportedSchema)

	assert.ErrorIs(t, f.svc.Revoke(ctx, "07", 101), models.ErrUnsupportedSchema)
	assert.ErrorIs(t, f.svc.ReplaceForStudent(ctx, "07", []int{301}), models.ErrUnsupportedSchema)

	_, err = f.svc.PurgeVideo(ctx, 101)
	assert.ErrorIs(t, err, models.ErrUnsupportedSchema)

	_, err = f.svc.RepairDrift(ctx)
	assert.ErrorIs(t, err, models.ErrUnsupportedSchema)

	drifts, err := f.svc.FindDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	raw, err := f.backend.Get(ctx, models.EntitlementKey("07"))
	require.NoError(t, err)
	assert.Equal(t, newer, raw)

	field, err := f.directory.GetUnlockedVideos(ctx, "07")
	require.NoError(t, err)
	assert.Empty(t, field)
}

func TestMalformedRecordIsOverwritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	require.NoError(t, f.backend.Set(ctx, models.EntitlementKey("07"), []byte("garbage")))
	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	f.requireSet(t, "07", 101)
}

func TestBackendFailureIsRetriedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	f.faulty.failNext("get", 1)
	videos, err := f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Equal(t, 2, f.faulty.callCount("get"))

	f.faulty.failNext("cas", 1)
	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	f.requireSet(t, "07", 101)
}

func TestBackendFailureSurfacesAfterRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	f.faulty.failNext("get", 2)
	_, err := f.svc.GetForStudent(ctx, "07")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, 2, f.faulty.callCount("get"))

	f.faulty.failNext("get", 2)
	err = f.svc.Grant(ctx, "07", 101)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.False(t, f.hasRecord("07"))
}

func TestBackendTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	f.svc.callTimeout = 20 * time.Millisecond

	f.faulty.blockUntilDeadline("get")
	start := time.Now()
	_, err := f.svc.GetForStudent(ctx, "07")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, f.faulty.callCount("get"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDirectoryWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	require.NoError(t, f.svc.Grant(ctx, "07", 101))

	f.directory.failSets(2)
	err := f.svc.Grant(ctx, "07", 102)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	f.requireSet(t, "07", 101)
	assert.Nil(t, f.record(t, "07").Pending)

	drifts, err := f.svc.FindDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	require.NoError(t, f.svc.Grant(ctx, "07", 102))
	f.requireSet(t, "07", 101, 102)
}

func TestStaleStageRollsForward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	// crashed after writing the student record but before committing
	f.writeRecord(t, &models.EntitlementRecord{
		StudentID: "07",
		VideoIDs:  models.NewVideoSet(101),
		Revision:  5,
		Pending:   &models.PendingChange{VideoIDs: models.NewVideoSet(101, 102), StagedAt: time.Now()},
	})
	require.NoError(t, f.directory.SetUnlockedVideos(ctx, "07", models.NewVideoSet(101, 102)))

	videos, err := f.svc.GetForStudent(ctx, "07")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSet{101}, videos, "readers see the committed set only")

	require.NoError(t, f.svc.Grant(ctx, "07", 103))
	f.requireSet(t, "07", 101, 102, 103)
	assert.Nil(t, f.record(t, "07").Pending)
	assert.Greater(t, f.record(t, "07").Revision, int64(5))
}

func TestStaleStageRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	// crashed before the student record was written
	f.writeRecord(t, &models.EntitlementRecord{
		StudentID: "07",
		VideoIDs:  models.NewVideoSet(101),
		Revision:  1,
		Pending:   &models.PendingChange{VideoIDs: models.NewVideoSet(101, 102), StagedAt: time.Now()},
	})
	require.NoError(t, f.directory.SetUnlockedVideos(ctx, "07", models.NewVideoSet(999)))

	require.NoError(t, f.svc.Grant(ctx, "07", 103))
	f.requireSet(t, "07", 101, 103)
}

func TestFindAndRepairDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07", "08", "09")

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 102}))
	require.NoError(t, f.svc.Grant(ctx, "08", 201))

	// out-of-band writes to the denormalized copy
	require.NoError(t, f.directory.SetUnlockedVideos(ctx, "07", models.NewVideoSet(101)))
	require.NoError(t, f.directory.SetUnlockedVideos(ctx, "09", models.NewVideoSet(301)))
	// record of a student that no longer exists
	f.writeRecord(t, &models.EntitlementRecord{StudentID: "ghost", VideoIDs: models.NewVideoSet(101)})

	drifts, err := f.svc.FindDrift(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Drift{
		{StudentID: "07", Expected: models.VideoSet{101, 102}, Actual: models.VideoSet{101}},
		{StudentID: "09", Expected: models.VideoSet{}, Actual: models.VideoSet{301}},
	}, drifts)

	// detection only
	field, err := f.directory.GetUnlockedVideos(ctx, "07")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSet{101}, field)

	repaired, err := f.svc.RepairDrift(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"07", "09", "ghost"}, repaired)

	f.requireSet(t, "07", 101, 102)
	f.requireSet(t, "08", 201)
	f.requireSet(t, "09")
	assert.False(t, f.hasRecord("ghost"))

	drifts, err = f.svc.FindDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	repaired, err = f.svc.RepairDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, repaired)
}

func TestRepairDriftResolvesStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	f.writeRecord(t, &models.EntitlementRecord{
		StudentID: "07",
		VideoIDs:  models.NewVideoSet(101),
		Revision:  1,
		Pending:   &models.PendingChange{VideoIDs: models.NewVideoSet(101, 102)},
	})
	require.NoError(t, f.directory.SetUnlockedVideos(ctx, "07", models.NewVideoSet(101, 102)))

	drifts, err := f.svc.FindDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)

	repaired, err := f.svc.RepairDrift(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"07"}, repaired)
	f.requireSet(t, "07", 101, 102)
}

func TestDeleteForStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	require.NoError(t, f.svc.DeleteForStudent(ctx, "07"))
	assert.False(t, f.hasRecord("07"))
	require.NoError(t, f.svc.DeleteForStudent(ctx, "07"))
}

func TestDeleteStudentBlocksConcurrentGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")
	require.NoError(t, f.svc.Grant(ctx, "07", 101))

	grantErr := make(chan error, 1)
	f.directory.mu.Lock()
	f.directory.beforeDelete = func() {
		// the record is gone but the student still exists
		go func() { grantErr <- f.svc.Grant(ctx, "07", 102) }()
		select {
		case err := <-grantErr:
			t.Errorf("grant finished while the student was being deleted: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}
	f.directory.mu.Unlock()

	require.NoError(t, f.svc.DeleteStudent(ctx, "07"))
	f.directory.mu.Lock()
	f.directory.beforeDelete = nil
	f.directory.mu.Unlock()

	select {
	case err := <-grantErr:
		assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	case <-time.After(time.Second):
		t.Fatal("grant did not finish")
	}
	assert.False(t, f.hasRecord("07"))

	exists, err := f.directory.Exists(ctx, "07")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, f.svc.DeleteStudent(ctx, "07"), apperrors.ErrStudentNotFound)
}

func TestPurgeVideo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07", "08", "09")

	require.NoError(t, f.svc.ReplaceForStudent(ctx, "07", []int{101, 102}))
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "08", []int{101}))
	require.NoError(t, f.svc.ReplaceForStudent(ctx, "09", []int{201}))

	affected, err := f.svc.PurgeVideo(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	f.requireSet(t, "07", 102)
	f.requireSet(t, "08")
	f.requireSet(t, "09", 201)
}

func TestPurgeVideoBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "07")

	f.faulty.failNext("list", 2)
	_, err := f.svc.PurgeVideo(ctx, 101)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestEventsArePublishedOnCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, "07")

	var (
		mu       sync.Mutex
		received []events.Event
	)
	require.NoError(t, f.bus.StartForwarder(ctx, func(evt events.Event) {
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	}))

	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	require.NoError(t, f.svc.Grant(ctx, "07", 101))
	require.NoError(t, f.svc.Revoke(ctx, "07", 101))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2, "no event for the no-op grant")
	assert.Equal(t, events.TypeEntitlementsChanged, received[0].Type)
	assert.Equal(t, OpGrant, received[0].Operation)
	assert.Equal(t, []int{101}, received[0].VideoIDs)
	assert.Equal(t, OpRevoke, received[1].Operation)
	assert.Equal(t, []int{}, received[1].VideoIDs)
	assert.Greater(t, received[1].Revision, received[0].Revision)
}

func TestKeyedMutex(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("a")
	unlockB := km.Lock("b")
	assert.Equal(t, 2, km.size())

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("a")
		unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Lock on the same key must block")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-done
	unlockB()
	assert.Equal(t, 0, km.size())
}

func ExampleEntitlementStore() {
	ctx := context.Background()
	directory := repositories.NewKVStudentRepository(memstore.New())
	_ = directory.Create(ctx, &models.Student{ID: "07", Login: "aluno07", Role: models.RoleStudent})

	store := NewEntitlementStore(memstore.New(), directory, nil, EntitlementOptions{}, zerolog.Nop())
	_ = store.ReplaceForStudent(ctx, "07", []int{102, 101, 101})
	_ = store.Grant(ctx, "07", 103)

	videos, _ := store.GetForStudent(ctx, "07")
	fmt.Println(videos)
	// Output: [101 102 103]
}
