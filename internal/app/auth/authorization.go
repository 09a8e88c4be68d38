package auth

import (
	"context"
	"fmt"

	"github.com/yigit/musicschool/internal/app/models"
	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/logger"
)

// Principal is the authenticated caller as seen by authorization checks
type Principal struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the caller is an administrator
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// EntitlementReader is the subset of the entitlement store the policy needs
type EntitlementReader interface {
	GetForStudent(ctx context.Context, studentID string) (models.VideoSet, error)
	IsUnlocked(ctx context.Context, studentID string, videoID int) (bool, error)
}

// VideoAccessPolicy decides whether a caller may play a video. Administrators
// bypass entitlements; everyone else needs the video unlocked.
type VideoAccessPolicy struct {
	entitlements EntitlementReader
}

// NewVideoAccessPolicy creates a new VideoAccessPolicy
func NewVideoAccessPolicy(entitlements EntitlementReader) *VideoAccessPolicy {
	return &VideoAccessPolicy{entitlements: entitlements}
}

// CanPlay checks access to videoID for the caller
func (p *VideoAccessPolicy) CanPlay(ctx context.Context, principal Principal, videoID int) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}
	if principal.UserID == "" {
		return false, nil
	}

	unlocked, err := p.entitlements.IsUnlocked(ctx, principal.UserID, videoID)
	if err != nil {
		logger.Error().Err(err).Str("studentId", principal.UserID).Int("videoId", videoID).Msg("Error checking video access")
		return false, err
	}
	return unlocked, nil
}

// ValidatePlayback returns nil if the caller may play videoID,
// ErrVideoNotFound for ids outside the catalog and ErrVideoLocked otherwise
func (p *VideoAccessPolicy) ValidatePlayback(ctx context.Context, principal Principal, videoID int) error {
	if _, ok := models.LookupVideo(videoID); !ok {
		return fmt.Errorf("video %d: %w", videoID, apperrors.ErrVideoNotFound)
	}

	allowed, err := p.CanPlay(ctx, principal, videoID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("video %d: %w", videoID, apperrors.ErrVideoLocked)
	}
	return nil
}

// UnlockedFor returns the caller's playable set. all is true for
// administrators, in which case the set is nil.
func (p *VideoAccessPolicy) UnlockedFor(ctx context.Context, principal Principal) (all bool, videos models.VideoSet, err error) {
	if principal.IsAdmin() {
		return true, nil, nil
	}
	videos, err = p.entitlements.GetForStudent(ctx, principal.UserID)
	if err != nil {
		return false, nil, err
	}
	return false, videos, nil
}
