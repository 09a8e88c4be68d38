package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/dberrors"
	"github.com/yigit/musicschool/internal/pkg/logger"
)

const studentLoginConstraint = "students_login_key"

var studentColumns = []string{
	"id", "name", "login", "password_hash", "email", "phone", "address",
	"birth_date", "course_start_date", "guardian_name", "guardian_phone",
	"module", "status", "role", "unlocked_videos", "created_at", "updated_at",
}

// PostgresStudentRepository handles student database operations
type PostgresStudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPostgresStudentRepository creates a new PostgresStudentRepository
func NewPostgresStudentRepository(db *pgxpool.Pool) *PostgresStudentRepository {
	return &PostgresStudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new student
func (r *PostgresStudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.CreatedAt, student.UpdatedAt = now, now
	student.UnlockedVideos = student.UnlockedVideos.Normalize()

	sql, args, err := r.sb.Insert("students").
		Columns(studentColumns...).
		Values(
			student.ID, student.Name, student.Login, student.PasswordHash, student.Email, student.Phone, student.Address,
			student.BirthDate, student.CourseStartDate, student.GuardianName, student.GuardianPhone,
			student.Module, string(student.Status), string(student.Role), toInt32s(student.UnlockedVideos),
			student.CreatedAt, student.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create student SQL")
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, studentLoginConstraint) {
			logger.Warn().Str("login", student.Login).Msg("Attempted to create student with duplicate login")
			return apperrors.ErrLoginAlreadyExists
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}

	logger.Info().Str("studentID", student.ID).Str("login", student.Login).Msg("Student created successfully")
	return nil
}

// GetByID retrieves a student by id
func (r *PostgresStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByLogin retrieves a student by login
func (r *PostgresStudentRepository) GetByLogin(ctx context.Context, login string) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"login": login})
}

func (r *PostgresStudentRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).From("students").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Interface("where", where).Msg("Error scanning student row")
		return nil, queryError("retrieving student", err)
	}
	return student, nil
}

// List returns one page of students ordered by creation time, plus the total count
func (r *PostgresStudentRepository) List(ctx context.Context, offset, limit int) ([]*models.Student, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("students").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return nil, 0, queryError("counting students", err)
	}

	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		OrderBy("created_at ASC", "id ASC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing students")
		return nil, 0, queryError("listing students", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0, limit)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, total, nil
}

// ListIDs returns every student id in ascending order
func (r *PostgresStudentRepository) ListIDs(ctx context.Context) ([]string, error) {
	sql, args, err := r.sb.Select("id").From("students").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list student ids query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing student ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning student ids: %w", err)
	}
	return ids, nil
}

// Update writes profile fields and the password hash. unlocked_videos is left alone.
func (r *PostgresStudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	sql, args, err := r.sb.Update("students").
		Set("name", student.Name).
		Set("login", student.Login).
		Set("password_hash", student.PasswordHash).
		Set("email", student.Email).
		Set("phone", student.Phone).
		Set("address", student.Address).
		Set("birth_date", student.BirthDate).
		Set("course_start_date", student.CourseStartDate).
		Set("guardian_name", student.GuardianName).
		Set("guardian_phone", student.GuardianPhone).
		Set("module", student.Module).
		Set("status", string(student.Status)).
		Set("role", string(student.Role)).
		Set("updated_at", student.UpdatedAt).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, studentLoginConstraint) {
			return apperrors.ErrLoginAlreadyExists
		}
		logger.Error().Err(err).Str("studentID", student.ID).Msg("Error updating student")
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// Delete removes a student
func (r *PostgresStudentRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete student query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Error deleting student")
		return fmt.Errorf("error deleting student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	logger.Info().Str("studentID", id).Msg("Student deleted successfully")
	return nil
}

// Exists checks whether a student with id exists
func (r *PostgresStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	sql, args, err := r.sb.Select("1").
		From("students").
		Where(squirrel.Eq{"id": id}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build student exists query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Error checking student existence")
		return false, fmt.Errorf("error checking student existence: %w", err)
	}
	return exists, nil
}

// GetUnlockedVideos reads the denormalized copy
func (r *PostgresStudentRepository) GetUnlockedVideos(ctx context.Context, id string) (models.VideoSet, error) {
	sql, args, err := r.sb.Select("unlocked_videos").From("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get unlocked videos query: %w", err)
	}

	var ids []int32
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&ids); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, queryError("reading unlocked videos", err)
	}
	return fromInt32s(ids), nil
}

// SetUnlockedVideos overwrites the denormalized copy
func (r *PostgresStudentRepository) SetUnlockedVideos(ctx context.Context, id string, videos models.VideoSet) error {
	sql, args, err := r.sb.Update("students").
		Set("unlocked_videos", toInt32s(videos.Normalize())).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set unlocked videos query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("studentID", id).Msg("Error writing unlocked videos")
		return queryError("writing unlocked videos", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// queryError marks an unreachable database as StorageUnavailable
func queryError(op string, err error) error {
	if dberrors.IsConnectionError(err) {
		return apperrors.NewStorageUnavailableError(op, err)
	}
	return fmt.Errorf("error %s: %w", op, err)
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var (
		s            models.Student
		status, role string
		videos       []int32
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Login, &s.PasswordHash, &s.Email, &s.Phone, &s.Address,
		&s.BirthDate, &s.CourseStartDate, &s.GuardianName, &s.GuardianPhone,
		&s.Module, &status, &role, &videos, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.StudentStatus(status)
	s.Role = models.Role(role)
	s.UnlockedVideos = fromInt32s(videos)
	return &s, nil
}

func toInt32s(videos models.VideoSet) []int32 {
	out := make([]int32, len(videos))
	for i, id := range videos {
		out[i] = int32(id)
	}
	return out
}

func fromInt32s(ids []int32) models.VideoSet {
	out := make(models.VideoSet, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out.Normalize()
}
