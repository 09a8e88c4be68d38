package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	appauth "github.com/yigit/musicschool/internal/app/auth"
	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/repositories"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
)

var youtubeHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

// CatalogService serves the static lesson catalog, video links and playback
type CatalogService struct {
	entitlements EntitlementStore
	policy       *appauth.VideoAccessPolicy
	links        *repositories.VideoLinkRepository
	logger       zerolog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	entitlements EntitlementStore,
	policy *appauth.VideoAccessPolicy,
	links *repositories.VideoLinkRepository,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		entitlements: entitlements,
		policy:       policy,
		links:        links,
		logger:       logger.With().Str("service", "CatalogService").Logger(),
	}
}

// Modules returns the catalog with the caller's unlocked flag on each video
func (s *CatalogService) Modules(ctx context.Context, principal appauth.Principal) ([]dto.CatalogModuleResponse, error) {
	all, unlocked, err := s.policy.UnlockedFor(ctx, principal)
	if err != nil {
		return nil, err
	}

	catalog := models.Catalog()
	modules := make([]dto.CatalogModuleResponse, 0, len(catalog))
	for _, module := range catalog {
		videos := make([]dto.CatalogVideoResponse, 0, len(module.Videos))
		for _, video := range module.Videos {
			videos = append(videos, dto.CatalogVideoResponse{
				Video:    video,
				Unlocked: all || unlocked.Contains(video.ID),
			})
		}
		modules = append(modules, dto.CatalogModuleResponse{
			ID:     module.ID,
			Title:  module.Title,
			Videos: videos,
		})
	}
	return modules, nil
}

// Play returns the link of a video the caller is allowed to watch
func (s *CatalogService) Play(ctx context.Context, principal appauth.Principal, videoID int) (*dto.PlayVideoResponse, error) {
	if err := s.policy.ValidatePlayback(ctx, principal, videoID); err != nil {
		return nil, err
	}

	link, found, err := s.links.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("no link configured for video %d", videoID))
	}

	video, _ := models.LookupVideo(videoID)
	s.logger.Debug().Str("studentId", principal.UserID).Int("videoId", videoID).Msg("Video playback granted")
	return &dto.PlayVideoResponse{Video: video, URL: link}, nil
}

// Links returns every configured video link
func (s *CatalogService) Links(ctx context.Context) (map[int]string, error) {
	return s.links.GetAll(ctx)
}

// SetLink stores the YouTube link of a catalog video
func (s *CatalogService) SetLink(ctx context.Context, videoID int, rawURL string) error {
	if _, ok := models.LookupVideo(videoID); !ok {
		return fmt.Errorf("video %d: %w", videoID, apperrors.ErrVideoNotFound)
	}
	if !isYouTubeURL(rawURL) {
		return apperrors.NewValidationError("url must be a YouTube link")
	}

	if err := s.links.Set(ctx, videoID, rawURL); err != nil {
		return err
	}
	s.logger.Info().Int("videoId", videoID).Msg("Video link updated")
	return nil
}

// PurgeVideo revokes the video from every student and drops its link. The
// id does not have to be in the catalog so retired videos can be cleaned up.
func (s *CatalogService) PurgeVideo(ctx context.Context, videoID int) (int, error) {
	affected, err := s.entitlements.PurgeVideo(ctx, videoID)
	if err != nil {
		return affected, err
	}
	if err := s.links.Delete(ctx, videoID); err != nil {
		return affected, err
	}
	return affected, nil
}

func isYouTubeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range youtubeHosts {
		if host == h {
			return true
		}
	}
	return false
}
