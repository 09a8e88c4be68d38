package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/models/dto"
	appServices "github.com/yigit/musicschool/internal/app/services"
)

// AdminAccount describes the administrator created on first start
type AdminAccount struct {
	Login    string
	Password string
	Name     string
}

// CreateDefaultData creates the administrator account if its login is free.
// An empty password disables seeding.
func CreateDefaultData(ctx context.Context, students *appServices.StudentService, admin AdminAccount, lgr zerolog.Logger) error {
	if admin.Password == "" {
		lgr.Warn().Str("login", admin.Login).Msg("Admin password not configured, skipping admin seeding")
		return nil
	}

	lgr.Info().Str("login", admin.Login).Msg("Checking/Creating default admin account...")

	created, err := students.EnsureAccount(ctx, &dto.CreateStudentRequest{
		Name:     admin.Name,
		Login:    admin.Login,
		Password: admin.Password,
		Status:   string(models.StudentStatusActive),
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	if created {
		lgr.Info().Str("login", admin.Login).Msg("Admin account created")
	} else {
		lgr.Debug().Str("login", admin.Login).Msg("Admin account already exists")
	}
	return nil
}
