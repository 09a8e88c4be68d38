package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	appauth "github.com/yigit/musicschool/internal/app/auth"
	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	students   repositories.StudentRepository
	policy     *appauth.VideoAccessPolicy
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	students repositories.StudentRepository,
	policy *appauth.VideoAccessPolicy,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		students:   students,
		policy:     policy,
		jwtService: jwtService,
		logger:     logger.With().Str("service", "AuthService").Logger(),
	}
}

// Login authenticates a student by login and password
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Login == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	student, err := s.students.GetByLogin(ctx, req.Login)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrStudentNotFound) {
			s.logger.Warn().Str("login", req.Login).Msg("Login attempt for unknown account")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(student.PasswordHash, req.Password) {
		s.logger.Warn().Str("login", req.Login).Msg("Login attempt with wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	if student.Status == models.StudentStatusInactive {
		return nil, apperrors.ErrAccountDisabled
	}

	token, expiresIn, err := s.jwtService.GenerateAccessToken(student)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	s.logger.Info().Str("studentId", student.ID).Str("role", string(student.Role)).Msg("Login successful")
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(expiresIn),
		},
		User: dto.NewStudentResponse(student),
	}, nil
}

// Me returns the caller's profile and the videos they can play. The video
// list comes from the entitlement store, not the student record copy.
func (s *AuthService) Me(ctx context.Context, principal appauth.Principal) (*dto.MeResponse, error) {
	student, err := s.students.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	all, videos, err := s.policy.UnlockedFor(ctx, principal)
	if err != nil {
		return nil, err
	}

	resp := &dto.MeResponse{
		Profile:        dto.NewStudentResponse(student),
		UnlockedVideos: videos.Ints(),
		AllVideos:      all,
	}
	if all {
		resp.UnlockedVideos = allCatalogVideoIDs()
	}
	return resp, nil
}

func allCatalogVideoIDs() []int {
	ids := make([]int, 0, 32)
	for _, module := range models.Catalog() {
		for _, video := range module.Videos {
			ids = append(ids, video.ID)
		}
	}
	return ids
}
