package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
	"github.com/yigit/musicschool/internal/pkg/logger"
)

const (
	studentKeyPrefix      = "student:"
	studentLoginKeyPrefix = "student-login:"
	maxStudentCASAttempts = 10
)

// KVStudentRepository keeps students as JSON documents in a kvstore.Store with
// a login index next to them.
type KVStudentRepository struct {
	store kvstore.Store
}

// NewKVStudentRepository creates a new KVStudentRepository
func NewKVStudentRepository(store kvstore.Store) *KVStudentRepository {
	return &KVStudentRepository{store: store}
}

func studentKey(id string) string         { return studentKeyPrefix + id }
func studentLoginKey(login string) string { return studentLoginKeyPrefix + login }

// Create stores a new student. The login index is claimed first so two
// students can never share a login.
func (r *KVStudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.CreatedAt, student.UpdatedAt = now, now
	student.UnlockedVideos = student.UnlockedVideos.Normalize()

	if err := r.claimLogin(ctx, student.Login, student.ID); err != nil {
		return err
	}

	data, err := json.Marshal(storedStudent(student))
	if err != nil {
		return fmt.Errorf("error encoding student: %w", err)
	}
	err = r.store.CompareAndSwap(ctx, studentKey(student.ID), nil, data)
	if err != nil {
		r.releaseLogin(ctx, student.Login, student.ID)
		if kvstore.ErrValueChanged.Has(err) {
			return fmt.Errorf("student %s: %w", student.ID, apperrors.ErrResourceAlreadyExists)
		}
		return fmt.Errorf("error creating student: %w", err)
	}

	logger.Info().Str("studentID", student.ID).Str("login", student.Login).Msg("Student created successfully")
	return nil
}

// GetByID retrieves a student by id
func (r *KVStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	student, _, err := r.load(ctx, id)
	return student, err
}

// GetByLogin resolves the login index and loads the student
func (r *KVStudentRepository) GetByLogin(ctx context.Context, login string) (*models.Student, error) {
	raw, found, err := kvstore.Lookup(ctx, r.store, studentLoginKey(login))
	if err != nil {
		return nil, fmt.Errorf("error reading login index: %w", err)
	}
	if !found {
		return nil, apperrors.ErrStudentNotFound
	}
	return r.GetByID(ctx, string(raw))
}

// List returns one page of students ordered by creation time, plus the total count
func (r *KVStudentRepository) List(ctx context.Context, offset, limit int) ([]*models.Student, int64, error) {
	ids, err := r.ListIDs(ctx)
	if err != nil {
		return nil, 0, err
	}

	students := make([]*models.Student, 0, len(ids))
	for _, id := range ids {
		student, _, err := r.load(ctx, id)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrStudentNotFound) {
				// deleted between List and Get
				continue
			}
			return nil, 0, err
		}
		students = append(students, student)
	}

	sort.SliceStable(students, func(i, j int) bool {
		if students[i].CreatedAt.Equal(students[j].CreatedAt) {
			return students[i].ID < students[j].ID
		}
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})

	total := int64(len(students))
	if offset >= len(students) {
		return []*models.Student{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(students) {
		end = len(students)
	}
	return students[offset:end], total, nil
}

// ListIDs returns every student id in ascending order
func (r *KVStudentRepository) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, studentKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, studentKeyPrefix))
	}
	return ids, nil
}

// Update writes profile fields and the password hash, moving the login index
// when the login changes. UnlockedVideos and CreatedAt keep their stored values.
func (r *KVStudentRepository) Update(ctx context.Context, student *models.Student) error {
	for attempt := 0; attempt < maxStudentCASAttempts; attempt++ {
		current, raw, err := r.load(ctx, student.ID)
		if err != nil {
			return err
		}

		loginChanged := current.Login != student.Login
		if loginChanged {
			if err := r.claimLogin(ctx, student.Login, student.ID); err != nil {
				return err
			}
		}

		next := *student
		next.UnlockedVideos = current.UnlockedVideos
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		err = r.swap(ctx, student.ID, raw, &next)
		if kvstore.ErrValueChanged.Has(err) {
			if loginChanged {
				r.releaseLogin(ctx, student.Login, student.ID)
			}
			continue
		}
		if err != nil {
			if loginChanged {
				r.releaseLogin(ctx, student.Login, student.ID)
			}
			return err
		}

		if loginChanged {
			r.releaseLogin(ctx, current.Login, student.ID)
		}
		*student = next
		return nil
	}
	return apperrors.NewConflictError(fmt.Sprintf("student %s is being modified concurrently", student.ID))
}

// Delete removes a student and its login index entry
func (r *KVStudentRepository) Delete(ctx context.Context, id string) error {
	for attempt := 0; attempt < maxStudentCASAttempts; attempt++ {
		current, raw, err := r.load(ctx, id)
		if err != nil {
			return err
		}

		err = r.store.CompareAndSwap(ctx, studentKey(id), raw, nil)
		if kvstore.ErrValueChanged.Has(err) {
			continue
		}
		if kvstore.ErrKeyNotFound.Has(err) {
			return apperrors.ErrStudentNotFound
		}
		if err != nil {
			return fmt.Errorf("error deleting student: %w", err)
		}

		r.releaseLogin(ctx, current.Login, id)
		logger.Info().Str("studentID", id).Msg("Student deleted successfully")
		return nil
	}
	return apperrors.NewConflictError(fmt.Sprintf("student %s is being modified concurrently", id))
}

// Exists checks whether a student with id exists
func (r *KVStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	_, found, err := kvstore.Lookup(ctx, r.store, studentKey(id))
	if err != nil {
		return false, fmt.Errorf("error checking student existence: %w", err)
	}
	return found, nil
}

// GetUnlockedVideos reads the denormalized copy
func (r *KVStudentRepository) GetUnlockedVideos(ctx context.Context, id string) (models.VideoSet, error) {
	student, _, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return student.UnlockedVideos, nil
}

// SetUnlockedVideos overwrites the denormalized copy
func (r *KVStudentRepository) SetUnlockedVideos(ctx context.Context, id string, videos models.VideoSet) error {
	for attempt := 0; attempt < maxStudentCASAttempts; attempt++ {
		current, raw, err := r.load(ctx, id)
		if err != nil {
			return err
		}

		current.UnlockedVideos = videos.Normalize()
		current.UpdatedAt = time.Now().UTC()

		err = r.swap(ctx, id, raw, current)
		if kvstore.ErrValueChanged.Has(err) {
			continue
		}
		return err
	}
	return apperrors.NewConflictError(fmt.Sprintf("student %s is being modified concurrently", id))
}

func (r *KVStudentRepository) load(ctx context.Context, id string) (*models.Student, []byte, error) {
	if id == "" {
		return nil, nil, apperrors.ErrStudentNotFound
	}
	raw, found, err := kvstore.Lookup(ctx, r.store, studentKey(id))
	if err != nil {
		return nil, nil, fmt.Errorf("error reading student: %w", err)
	}
	if !found {
		return nil, nil, apperrors.ErrStudentNotFound
	}

	var doc studentDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Malformed student document")
		return nil, nil, fmt.Errorf("error decoding student %s: %w", id, err)
	}
	return doc.toModel(), raw, nil
}

func (r *KVStudentRepository) swap(ctx context.Context, id string, oldRaw []byte, student *models.Student) error {
	data, err := json.Marshal(storedStudent(student))
	if err != nil {
		return fmt.Errorf("error encoding student: %w", err)
	}
	err = r.store.CompareAndSwap(ctx, studentKey(id), oldRaw, data)
	if kvstore.ErrKeyNotFound.Has(err) {
		return apperrors.ErrStudentNotFound
	}
	if err != nil && !kvstore.ErrValueChanged.Has(err) {
		return fmt.Errorf("error writing student: %w", err)
	}
	return err
}

func (r *KVStudentRepository) claimLogin(ctx context.Context, login, id string) error {
	err := r.store.CompareAndSwap(ctx, studentLoginKey(login), nil, []byte(id))
	if kvstore.ErrValueChanged.Has(err) {
		owner, getErr := r.store.Get(ctx, studentLoginKey(login))
		if getErr == nil && string(owner) == id {
			return nil
		}
		return apperrors.ErrLoginAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("error claiming login: %w", err)
	}
	return nil
}

// releaseLogin drops the index entry only while it still points at id.
func (r *KVStudentRepository) releaseLogin(ctx context.Context, login, id string) {
	err := r.store.CompareAndSwap(ctx, studentLoginKey(login), []byte(id), nil)
	if err != nil && !kvstore.ErrKeyNotFound.Has(err) && !kvstore.ErrValueChanged.Has(err) {
		logger.Warn().Err(err).Str("login", login).Str("studentID", id).Msg("Failed to release login index entry")
	}
}

// studentDocument is the stored JSON form. It differs from the API form by
// keeping the password hash.
type studentDocument struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Login           string               `json:"login"`
	PasswordHash    string               `json:"passwordHash"`
	Email           string               `json:"email,omitempty"`
	Phone           string               `json:"phone,omitempty"`
	Address         string               `json:"address,omitempty"`
	BirthDate       string               `json:"birthDate,omitempty"`
	CourseStartDate string               `json:"courseStartDate,omitempty"`
	GuardianName    string               `json:"guardianName,omitempty"`
	GuardianPhone   string               `json:"guardianPhone,omitempty"`
	Module          int                  `json:"module"`
	Status          models.StudentStatus `json:"status"`
	Role            models.Role          `json:"role"`
	UnlockedVideos  models.VideoSet      `json:"unlockedVideos"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func storedStudent(s *models.Student) studentDocument {
	return studentDocument{
		ID: s.ID, Name: s.Name, Login: s.Login, PasswordHash: s.PasswordHash,
		Email: s.Email, Phone: s.Phone, Address: s.Address,
		BirthDate: s.BirthDate, CourseStartDate: s.CourseStartDate,
		GuardianName: s.GuardianName, GuardianPhone: s.GuardianPhone,
		Module: s.Module, Status: s.Status, Role: s.Role,
		UnlockedVideos: s.UnlockedVideos.Normalize(),
		CreatedAt:      s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func (d studentDocument) toModel() *models.Student {
	return &models.Student{
		ID: d.ID, Name: d.Name, Login: d.Login, PasswordHash: d.PasswordHash,
		Email: d.Email, Phone: d.Phone, Address: d.Address,
		BirthDate: d.BirthDate, CourseStartDate: d.CourseStartDate,
		GuardianName: d.GuardianName, GuardianPhone: d.GuardianPhone,
		Module: d.Module, Status: d.Status, Role: d.Role,
		UnlockedVideos: d.UnlockedVideos.Normalize(),
		CreatedAt:      d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}
