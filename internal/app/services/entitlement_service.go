package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/events"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

const (
	maxCASAttempts            = 5
	defaultBackendCallTimeout = 5 * time.Second
	defaultParallelism        = 8
)

// Entitlement operations, used in logs and change events
const (
	OpReplace = "replace"
	OpGrant   = "grant"
	OpRevoke  = "revoke"
	OpDelete  = "delete"
	OpRepair  = "repair"
)

// EntitlementStore owns the per-student set of unlocked videos and keeps the
// unlockedVideos copy on the student record in step with it.
type EntitlementStore interface {
	// GetAll never fails: a backend failure yields an empty map and malformed
	// records are skipped.
	GetAll(ctx context.Context) map[string]models.VideoSet
	GetForStudent(ctx context.Context, studentID string) (models.VideoSet, error)
	ReplaceForStudent(ctx context.Context, studentID string, videoIDs []int) error
	Grant(ctx context.Context, studentID string, videoID int) error
	Revoke(ctx context.Context, studentID string, videoID int) error
	IsUnlocked(ctx context.Context, studentID string, videoID int) (bool, error)

	DeleteForStudent(ctx context.Context, studentID string) error
	DeleteStudent(ctx context.Context, studentID string) error
	PurgeVideo(ctx context.Context, videoID int) (int, error)
	FindDrift(ctx context.Context) ([]models.Drift, error)
	RepairDrift(ctx context.Context) ([]string, error)
}

// EntitlementOptions tunes backend access.
type EntitlementOptions struct {
	CallTimeout time.Duration
	Parallelism int
}

type entitlementStore struct {
	store       kvstore.Store
	directory   repositories.StudentRepository
	bus         events.Bus
	locks       *keyedMutex
	callTimeout time.Duration
	parallelism int
	logger      zerolog.Logger
}

// NewEntitlementStore creates the entitlement store. bus may be nil.
func NewEntitlementStore(
	store kvstore.Store,
	directory repositories.StudentRepository,
	bus events.Bus,
	opts EntitlementOptions,
	logger zerolog.Logger,
) EntitlementStore {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultBackendCallTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	return &entitlementStore{
		store:       store,
		directory:   directory,
		bus:         bus,
		locks:       newKeyedMutex(),
		callTimeout: opts.CallTimeout,
		parallelism: opts.Parallelism,
		logger:      logger.With().Str("service", "EntitlementStore").Logger(),
	}
}

// GetAll returns every student's committed set.
func (s *entitlementStore) GetAll(ctx context.Context) map[string]models.VideoSet {
	result := make(map[string]models.VideoSet)

	keys, err := s.listRecordKeys(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Listing entitlement records failed, returning empty map")
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, studentID := range keys {
		studentID := studentID
		g.Go(func() error {
			raw, found, err := s.lookup(gctx, models.EntitlementKey(studentID))
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			rec, err := models.DecodeEntitlementRecord(raw)
			if err != nil {
				s.logger.Warn().Err(err).Str("studentId", studentID).Msg("Skipping malformed entitlement record")
				return nil
			}
			mu.Lock()
			result[studentID] = rec.VideoIDs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Msg("Reading entitlement records failed, returning empty map")
		return make(map[string]models.VideoSet)
	}
	return result
}

// GetForStudent returns the committed set, or an empty set if the student has
// no record or the record is malformed.
func (s *entitlementStore) GetForStudent(ctx context.Context, studentID string) (models.VideoSet, error) {
	if studentID == "" {
		return nil, apperrors.NewValidationError("student id is required")
	}

	_, rec, err := s.readRecord(ctx, studentID)
	if errors.Is(err, models.ErrUnsupportedSchema) {
		s.logger.Warn().Err(err).Str("studentId", studentID).Msg("Unreadable entitlement record, treating as empty")
		return models.VideoSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entitlements for student %s: %w", studentID, err)
	}
	return rec.VideoIDs, nil
}

// ReplaceForStudent sets the student's set to videoIDs, deduplicated.
func (s *entitlementStore) ReplaceForStudent(ctx context.Context, studentID string, videoIDs []int) error {
	for _, id := range videoIDs {
		if id <= 0 {
			return apperrors.NewValidationError("video id must be positive, got %d", id)
		}
	}
	next := models.NewVideoSet(videoIDs...)

	_, err := s.mutate(ctx, studentID, OpReplace, func(models.VideoSet) models.VideoSet { return next })
	if err != nil {
		return fmt.Errorf("replace entitlements for student %s: %w", studentID, err)
	}
	return nil
}

// Grant unlocks videoID for the student. Granting an unlocked video is a no-op.
func (s *entitlementStore) Grant(ctx context.Context, studentID string, videoID int) error {
	if videoID <= 0 {
		return apperrors.NewValidationError("video id must be positive, got %d", videoID)
	}

	_, err := s.mutate(ctx, studentID, OpGrant, func(current models.VideoSet) models.VideoSet {
		return current.With(videoID)
	})
	if err != nil {
		return fmt.Errorf("grant video %d to student %s: %w", videoID, studentID, err)
	}
	return nil
}

// Revoke locks videoID for the student. Revoking a locked video is a no-op.
func (s *entitlementStore) Revoke(ctx context.Context, studentID string, videoID int) error {
	if videoID <= 0 {
		return apperrors.NewValidationError("video id must be positive, got %d", videoID)
	}

	_, err := s.mutate(ctx, studentID, OpRevoke, func(current models.VideoSet) models.VideoSet {
		return current.Without(videoID)
	})
	if err != nil {
		return fmt.Errorf("revoke video %d from student %s: %w", videoID, studentID, err)
	}
	return nil
}

// IsUnlocked reports whether videoID is in the student's set. Role-based
// bypasses are applied by the caller.
func (s *entitlementStore) IsUnlocked(ctx context.Context, studentID string, videoID int) (bool, error) {
	videos, err := s.GetForStudent(ctx, studentID)
	if err != nil {
		return false, err
	}
	return videos.Contains(videoID), nil
}

// DeleteForStudent removes the student's record. Missing records are fine.
func (s *entitlementStore) DeleteForStudent(ctx context.Context, studentID string) error {
	if studentID == "" {
		return apperrors.NewValidationError("student id is required")
	}
	unlock := s.locks.Lock(studentID)
	defer unlock()

	return s.deleteRecord(ctx, studentID)
}

// DeleteStudent removes the student's record and then the student itself
// while holding the student's lock, so no mutation can recreate the record
// in between. A failure after the first step leaves a student with an empty
// set; RepairDrift rewrites the stale unlockedVideos copy.
func (s *entitlementStore) DeleteStudent(ctx context.Context, studentID string) error {
	if studentID == "" {
		return apperrors.NewValidationError("student id is required")
	}
	unlock := s.locks.Lock(studentID)
	defer unlock()

	if err := s.deleteRecord(ctx, studentID); err != nil {
		return err
	}
	err := s.callBackend(ctx, "delete-student", func(ctx context.Context) error {
		return s.directory.Delete(ctx, studentID)
	})
	if err != nil {
		return fmt.Errorf("delete student %s: %w", studentID, err)
	}
	return nil
}

func (s *entitlementStore) deleteRecord(ctx context.Context, studentID string) error {
	key := models.EntitlementKey(studentID)
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		raw, found, err := s.lookup(ctx, key)
		if err != nil {
			return fmt.Errorf("delete entitlements for student %s: %w", studentID, err)
		}
		if !found {
			return nil
		}

		err = s.cas(ctx, key, raw, nil)
		if isCASConflict(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("delete entitlements for student %s: %w", studentID, err)
		}

		s.logger.Info().Str("studentId", studentID).Msg("Entitlement record deleted")
		s.publish(ctx, studentID, models.VideoSet{}, 0, OpDelete)
		return nil
	}
	return apperrors.NewConflictError(fmt.Sprintf("entitlements for student %s changed concurrently", studentID))
}

// PurgeVideo revokes videoID from every student holding it and returns how
// many sets changed.
func (s *entitlementStore) PurgeVideo(ctx context.Context, videoID int) (int, error) {
	if videoID <= 0 {
		return 0, apperrors.NewValidationError("video id must be positive, got %d", videoID)
	}

	studentIDs, err := s.listRecordKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge video %d: %w", videoID, err)
	}

	var (
		mu       sync.Mutex
		affected int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, studentID := range studentIDs {
		studentID := studentID
		g.Go(func() error {
			changed, err := s.mutate(gctx, studentID, OpRevoke, func(current models.VideoSet) models.VideoSet {
				return current.Without(videoID)
			})
			if errors.Is(err, apperrors.ErrStudentNotFound) {
				// orphaned record; RepairDrift removes it
				return nil
			}
			if err != nil {
				return fmt.Errorf("revoke from student %s: %w", studentID, err)
			}
			if changed {
				mu.Lock()
				affected++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return affected, fmt.Errorf("purge video %d: %w", videoID, err)
	}

	s.logger.Info().Int("videoId", videoID).Int("affected", affected).Msg("Video purged from entitlements")
	return affected, nil
}

// FindDrift lists students whose unlockedVideos copy differs from the
// entitlement store. It does not modify anything.
func (s *entitlementStore) FindDrift(ctx context.Context) ([]models.Drift, error) {
	studentIDs, err := s.listStudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("find drift: %w", err)
	}

	var (
		mu     sync.Mutex
		drifts = make([]models.Drift, 0)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, studentID := range studentIDs {
		studentID := studentID
		g.Go(func() error {
			_, rec, err := s.readRecord(gctx, studentID)
			if errors.Is(err, models.ErrUnsupportedSchema) {
				s.logger.Warn().Err(err).Str("studentId", studentID).Msg("Skipping unreadable entitlement record")
				return nil
			}
			if err != nil {
				return err
			}
			actual, err := s.unlockedVideos(gctx, studentID)
			if errors.Is(err, apperrors.ErrStudentNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if rec.Pending == nil && rec.VideoIDs.Equal(actual) {
				return nil
			}
			mu.Lock()
			drifts = append(drifts, models.Drift{StudentID: studentID, Expected: rec.VideoIDs, Actual: actual})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("find drift: %w", err)
	}

	sort.Slice(drifts, func(i, j int) bool { return drifts[i].StudentID < drifts[j].StudentID })
	return drifts, nil
}

// RepairDrift makes every student's unlockedVideos copy match the entitlement
// store, resolves leftover stages and removes records of deleted students.
// It returns the ids it changed.
func (s *entitlementStore) RepairDrift(ctx context.Context) ([]string, error) {
	studentIDs, err := s.listStudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("repair drift: %w", err)
	}
	recordIDs, err := s.listRecordKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("repair drift: %w", err)
	}

	known := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		known[id] = struct{}{}
	}

	var (
		mu       sync.Mutex
		repaired = make([]string, 0)
	)
	markRepaired := func(id string) {
		mu.Lock()
		repaired = append(repaired, id)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, studentID := range studentIDs {
		studentID := studentID
		g.Go(func() error {
			changed, err := s.repairStudent(gctx, studentID)
			if err != nil {
				return fmt.Errorf("student %s: %w", studentID, err)
			}
			if changed {
				markRepaired(studentID)
			}
			return nil
		})
	}
	for _, studentID := range recordIDs {
		if _, ok := known[studentID]; ok {
			continue
		}
		studentID := studentID
		g.Go(func() error {
			removed, err := s.removeOrphan(gctx, studentID)
			if err != nil {
				return fmt.Errorf("orphan record %s: %w", studentID, err)
			}
			if removed {
				markRepaired(studentID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("repair drift: %w", err)
	}

	sort.Strings(repaired)
	if len(repaired) > 0 {
		s.logger.Warn().Strs("studentIds", repaired).Msg("Repaired entitlement drift")
	}
	return repaired, nil
}

func (s *entitlementStore) repairStudent(ctx context.Context, studentID string) (bool, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	changed := false
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		raw, rec, err := s.readRecord(ctx, studentID)
		if err != nil {
			return false, err
		}
		if rec.Pending != nil {
			err := s.resolveStage(ctx, studentID, raw, rec)
			if err != nil && !isCASConflict(err) {
				return false, err
			}
			changed = true
			continue
		}

		actual, err := s.unlockedVideos(ctx, studentID)
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return changed, nil
		}
		if err != nil {
			return false, err
		}
		if actual.Equal(rec.VideoIDs) {
			return changed, nil
		}

		if err := s.setUnlockedVideos(ctx, studentID, rec.VideoIDs); err != nil {
			return false, err
		}
		s.logger.Info().Str("studentId", studentID).Ints("videoIds", rec.VideoIDs.Ints()).
			Ints("previous", actual.Ints()).Msg("Rewrote unlocked videos from entitlement store")
		s.publish(ctx, studentID, rec.VideoIDs, rec.Revision, OpRepair)
		return true, nil
	}
	return false, apperrors.NewConflictError(fmt.Sprintf("entitlements for student %s changed concurrently", studentID))
}

func (s *entitlementStore) removeOrphan(ctx context.Context, studentID string) (bool, error) {
	unlock := s.locks.Lock(studentID)
	exists, err := s.studentExists(ctx, studentID)
	unlock()
	if err != nil {
		return false, err
	}
	if exists {
		// created after the directory was listed
		return false, nil
	}
	if err := s.DeleteForStudent(ctx, studentID); err != nil {
		return false, err
	}
	return true, nil
}

// mutate applies fn to the student's committed set using the stage/commit
// protocol. It reports whether anything was written.
func (s *entitlementStore) mutate(ctx context.Context, studentID, op string, fn func(models.VideoSet) models.VideoSet) (bool, error) {
	if studentID == "" {
		return false, apperrors.NewValidationError("student id is required")
	}

	unlock := s.locks.Lock(studentID)
	defer unlock()

	exists, err := s.studentExists(ctx, studentID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("student %s: %w", studentID, apperrors.ErrStudentNotFound)
	}

	key := models.EntitlementKey(studentID)
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		raw, rec, err := s.readRecord(ctx, studentID)
		if err != nil {
			return false, err
		}

		if rec.Pending != nil {
			s.logger.Warn().Str("studentId", studentID).Int64("revision", rec.Revision).
				Time("stagedAt", rec.Pending.StagedAt).Msg("Found leftover entitlement stage, resolving")
			if err := s.resolveStage(ctx, studentID, raw, rec); err != nil && !isCASConflict(err) {
				return false, err
			}
			continue
		}

		current := rec.VideoIDs
		next := fn(current).Normalize()
		if next.Equal(current) {
			actual, err := s.unlockedVideos(ctx, studentID)
			if err != nil {
				return false, err
			}
			if actual.Equal(next) {
				return false, nil
			}
			s.logger.Warn().Str("studentId", studentID).Ints("expected", next.Ints()).
				Ints("actual", actual.Ints()).Msg("Student record drifted, rewriting")
		}

		now := time.Now().UTC()
		staged := &models.EntitlementRecord{
			StudentID: studentID,
			VideoIDs:  current,
			Revision:  rec.Revision + 1,
			Pending:   &models.PendingChange{VideoIDs: next, StagedAt: now},
			UpdatedAt: now,
		}
		stagedRaw, err := staged.Encode()
		if err != nil {
			return false, err
		}

		err = s.cas(ctx, key, raw, stagedRaw)
		if isCASConflict(err) {
			continue
		}
		if err != nil {
			return false, err
		}

		if err := s.setUnlockedVideos(ctx, studentID, next); err != nil {
			s.logger.Error().Err(err).Str("studentId", studentID).Str("op", op).
				Msg("Writing unlocked videos failed, resolving stage")
			if resolveErr := s.resolveStage(ctx, studentID, stagedRaw, staged); resolveErr != nil {
				s.logger.Warn().Err(resolveErr).Str("studentId", studentID).
					Msg("Stage left in place for later recovery")
			}
			return false, err
		}

		committed := &models.EntitlementRecord{
			StudentID: studentID,
			VideoIDs:  next,
			Revision:  staged.Revision + 1,
			UpdatedAt: time.Now().UTC(),
		}
		committedRaw, err := committed.Encode()
		if err != nil {
			return false, err
		}
		err = s.cas(ctx, key, stagedRaw, committedRaw)
		if isCASConflict(err) {
			// another process resolved our stage; redo from its result
			continue
		}
		if err != nil {
			return false, err
		}

		s.logger.Info().Str("studentId", studentID).Str("op", op).Int64("revision", committed.Revision).
			Ints("videoIds", next.Ints()).Msg("Entitlements committed")
		s.publish(ctx, studentID, next, committed.Revision, op)
		return true, nil
	}

	return false, apperrors.NewConflictError(fmt.Sprintf("entitlements for student %s changed concurrently", studentID))
}

// resolveStage settles a pending stage. If the student record already holds
// the staged set the stage is committed, otherwise the student record is
// rewritten to the committed set and the stage dropped.
func (s *entitlementStore) resolveStage(ctx context.Context, studentID string, raw []byte, rec *models.EntitlementRecord) error {
	actual, err := s.unlockedVideos(ctx, studentID)
	if err != nil {
		return err
	}

	final := rec.VideoIDs
	if actual.Equal(rec.Pending.VideoIDs) {
		final = rec.Pending.VideoIDs
	} else if !actual.Equal(rec.VideoIDs) {
		if err := s.setUnlockedVideos(ctx, studentID, rec.VideoIDs); err != nil {
			return err
		}
	}

	resolved := &models.EntitlementRecord{
		StudentID: studentID,
		VideoIDs:  final,
		Revision:  rec.Revision + 1,
		UpdatedAt: time.Now().UTC(),
	}
	resolvedRaw, err := resolved.Encode()
	if err != nil {
		return err
	}
	if err := s.cas(ctx, models.EntitlementKey(studentID), raw, resolvedRaw); err != nil {
		return err
	}

	rolledForward := final.Equal(rec.Pending.VideoIDs)
	s.logger.Info().Str("studentId", studentID).Bool("rolledForward", rolledForward).
		Int64("revision", resolved.Revision).Msg("Entitlement stage resolved")
	return nil
}

// readRecord returns the raw bytes and decoded record. A missing or malformed
// record decodes to an empty revision-0 record; raw is nil only when missing.
// A record from a newer schema is returned as a Conflict error wrapping
// models.ErrUnsupportedSchema so that no write replaces it.
func (s *entitlementStore) readRecord(ctx context.Context, studentID string) ([]byte, *models.EntitlementRecord, error) {
	raw, found, err := s.lookup(ctx, models.EntitlementKey(studentID))
	if err != nil {
		return nil, nil, err
	}
	empty := &models.EntitlementRecord{
		SchemaVersion: models.EntitlementSchemaVersion,
		StudentID:     studentID,
		VideoIDs:      models.VideoSet{},
	}
	if !found {
		return nil, empty, nil
	}

	rec, err := models.DecodeEntitlementRecord(raw)
	if errors.Is(err, models.ErrUnsupportedSchema) {
		conflict := apperrors.NewConflictError(fmt.Sprintf("entitlement record for student %s has an unsupported schema", studentID))
		return raw, nil, fmt.Errorf("%w: %w", conflict, err)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("studentId", studentID).Msg("Malformed entitlement record, treating as empty")
		return raw, empty, nil
	}
	return raw, rec, nil
}

func (s *entitlementStore) listRecordKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.callBackend(ctx, "list", func(ctx context.Context) error {
		var err error
		keys, err = s.store.List(ctx, models.EntitlementKeyPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id, ok := models.StudentIDFromEntitlementKey(key); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *entitlementStore) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		raw   []byte
		found bool
	)
	err := s.callBackend(ctx, "get", func(ctx context.Context) error {
		var err error
		raw, found, err = kvstore.Lookup(ctx, s.store, key)
		return err
	})
	return raw, found, err
}

func (s *entitlementStore) cas(ctx context.Context, key string, oldValue, newValue []byte) error {
	return s.callBackend(ctx, "compare-and-swap", func(ctx context.Context) error {
		return s.store.CompareAndSwap(ctx, key, oldValue, newValue)
	})
}

func (s *entitlementStore) studentExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	err := s.callBackend(ctx, "exists", func(ctx context.Context) error {
		var err error
		exists, err = s.directory.Exists(ctx, studentID)
		return err
	})
	return exists, err
}

func (s *entitlementStore) listStudentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.callBackend(ctx, "list-students", func(ctx context.Context) error {
		var err error
		ids, err = s.directory.ListIDs(ctx)
		return err
	})
	return ids, err
}

func (s *entitlementStore) unlockedVideos(ctx context.Context, studentID string) (models.VideoSet, error) {
	var videos models.VideoSet
	err := s.callBackend(ctx, "get-unlocked-videos", func(ctx context.Context) error {
		var err error
		videos, err = s.directory.GetUnlockedVideos(ctx, studentID)
		return err
	})
	return videos.Normalize(), err
}

func (s *entitlementStore) setUnlockedVideos(ctx context.Context, studentID string, videos models.VideoSet) error {
	return s.callBackend(ctx, "set-unlocked-videos", func(ctx context.Context) error {
		return s.directory.SetUnlockedVideos(ctx, studentID, videos)
	})
}

// callBackend runs fn with a per-call timeout. Failures other than expected
// outcomes become StorageUnavailable and are retried once.
func (s *entitlementStore) callBackend(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := s.callOnce(ctx, op, fn)
	if errors.Is(err, apperrors.ErrStorageUnavailable) {
		s.logger.Warn().Err(err).Str("op", op).Msg("Backend call failed, retrying once")
		err = s.callOnce(ctx, op, fn)
	}
	return err
}

func (s *entitlementStore) callOnce(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil:
		return nil
	case kvstore.ErrKeyNotFound.Has(err), kvstore.ErrValueChanged.Has(err):
		return err
	case errors.Is(err, apperrors.ErrResourceNotFound),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrStorageUnavailable):
		return err
	default:
		return apperrors.NewStorageUnavailableError(op, err)
	}
}

func (s *entitlementStore) publish(ctx context.Context, studentID string, videos models.VideoSet, revision int64, op string) {
	if s.bus == nil {
		return
	}
	evt := events.Event{
		Type:      events.TypeEntitlementsChanged,
		StudentID: studentID,
		VideoIDs:  videos.Ints(),
		Revision:  revision,
		Operation: op,
		At:        time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("studentId", studentID).Str("op", op).Msg("Publishing entitlement event failed")
	}
}

func isCASConflict(err error) bool {
	return kvstore.ErrValueChanged.Has(err) || kvstore.ErrKeyNotFound.Has(err)
}
