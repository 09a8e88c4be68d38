package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/auth"
	"github.com/yigit/musicschool/internal/pkg/helpers"
	"github.com/yigit/musicschool/internal/pkg/validation"
)

// StudentService handles student profile management. It never writes
// unlockedVideos; that field belongs to the entitlement store.
type StudentService struct {
	students     repositories.StudentRepository
	entitlements EntitlementStore
	logger       zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(students repositories.StudentRepository, entitlements EntitlementStore, logger zerolog.Logger) *StudentService {
	return &StudentService{
		students:     students,
		entitlements: entitlements,
		logger:       logger.With().Str("service", "StudentService").Logger(),
	}
}

// Create registers a new student with a hashed password
func (s *StudentService) Create(ctx context.Context, req *dto.CreateStudentRequest) (*models.Student, error) {
	if err := validateProfile(req.Login, req.BirthDate, req.CourseStartDate, req.Module); err != nil {
		return nil, err
	}
	if len(req.Password) < validation.PasswordMinLength {
		return nil, apperrors.NewValidationError("password must be at least %d characters", validation.PasswordMinLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	student := &models.Student{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Login:           req.Login,
		PasswordHash:    hash,
		Email:           req.Email,
		Phone:           req.Phone,
		Address:         req.Address,
		BirthDate:       req.BirthDate,
		CourseStartDate: req.CourseStartDate,
		GuardianName:    req.GuardianName,
		GuardianPhone:   req.GuardianPhone,
		Module:          req.Module,
		Status:          statusOrDefault(req.Status),
		Role:            roleOrDefault(req.Role),
		UnlockedVideos:  models.VideoSet{},
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info().Str("studentId", student.ID).Str("login", student.Login).Msg("Student registered")
	return student, nil
}

// GetByID returns a student
func (s *StudentService) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return s.students.GetByID(ctx, id)
}

// List returns one page of students
func (s *StudentService) List(ctx context.Context, page, size int) ([]*models.Student, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	students, total, err := s.students.List(ctx, int(offset), limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, fmt.Errorf("error listing students: %w", err)
	}
	return students, helpers.NewPaginationInfo(total, page, limit), nil
}

// Update replaces the profile fields of a student. An empty password keeps
// the current hash.
func (s *StudentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest) (*models.Student, error) {
	if err := validateProfile(req.Login, req.BirthDate, req.CourseStartDate, req.Module); err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Password != "" {
		if len(req.Password) < validation.PasswordMinLength {
			return nil, apperrors.NewValidationError("password must be at least %d characters", validation.PasswordMinLength)
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		student.PasswordHash = hash
	}

	student.Name = req.Name
	student.Login = req.Login
	student.Email = req.Email
	student.Phone = req.Phone
	student.Address = req.Address
	student.BirthDate = req.BirthDate
	student.CourseStartDate = req.CourseStartDate
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone
	student.Module = req.Module
	if req.Status != "" {
		student.Status = models.StudentStatus(req.Status)
	}
	if req.Role != "" {
		student.Role = models.Role(req.Role)
	}

	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}

	return s.students.GetByID(ctx, id)
}

// Delete removes the student's entitlement record and then the student under
// one per-student lock.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	exists, err := s.students.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrStudentNotFound
	}

	if err := s.entitlements.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}

	s.logger.Info().Str("studentId", id).Msg("Student deleted")
	return nil
}

// EnsureAccount creates the student if the login is free. It returns false
// when the login already exists.
func (s *StudentService) EnsureAccount(ctx context.Context, req *dto.CreateStudentRequest) (bool, error) {
	_, err := s.students.GetByLogin(ctx, req.Login)
	if err == nil {
		return false, nil
	}
	if !apperrors.Is(err, apperrors.ErrStudentNotFound) {
		return false, err
	}

	if _, err := s.Create(ctx, req); err != nil {
		if apperrors.Is(err, apperrors.ErrLoginAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func validateProfile(login, birthDate, courseStartDate string, module int) error {
	if !validation.IsValidLogin(login) {
		return apperrors.NewValidationError("login must be %d-%d characters of a-z, 0-9, '.', '_' or '-'",
			validation.LoginMinLength, validation.LoginMaxLength)
	}
	if !validation.IsValidDate(birthDate) {
		return apperrors.NewValidationError("birthDate must be YYYY-MM-DD")
	}
	if !validation.IsValidDate(courseStartDate) {
		return apperrors.NewValidationError("courseStartDate must be YYYY-MM-DD")
	}
	if module < 0 {
		return apperrors.NewValidationError("module must not be negative")
	}
	return nil
}

func statusOrDefault(status string) models.StudentStatus {
	if status == "" {
		return models.StudentStatusActive
	}
	return models.StudentStatus(status)
}

func roleOrDefault(role string) models.Role {
	if role == "" {
		return models.RoleStudent
	}
	return models.Role(role)
}
