package repositories

import (
	"context"

	"github.com/yigit/musicschool/internal/app/models"
)

// StudentRepository is the student directory. Implementations return
// apperrors.ErrStudentNotFound for unknown ids and never touch
// UnlockedVideos outside SetUnlockedVideos.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByLogin(ctx context.Context, login string) (*models.Student, error)
	List(ctx context.Context, offset, limit int) ([]*models.Student, int64, error)
	ListIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	GetUnlockedVideos(ctx context.Context, id string) (models.VideoSet, error)
	SetUnlockedVideos(ctx context.Context, id string, videos models.VideoSet) error
}
