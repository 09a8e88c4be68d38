package repositories

import (
	"context"
	"strconv"
	"strings"

	"github.com/yigit/musicschool/internal/pkg/apperrors"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

const videoLinkKeyPrefix = "video-links:"

// VideoLinkRepository stores the YouTube link of each catalog video.
type VideoLinkRepository struct {
	store kvstore.Store
}

// NewVideoLinkRepository creates a new VideoLinkRepository
func NewVideoLinkRepository(store kvstore.Store) *VideoLinkRepository {
	return &VideoLinkRepository{store: store}
}

func videoLinkKey(videoID int) string {
	return videoLinkKeyPrefix + strconv.Itoa(videoID)
}

// Get returns the link for videoID, or found=false if none is set
func (r *VideoLinkRepository) Get(ctx context.Context, videoID int) (string, bool, error) {
	raw, found, err := kvstore.Lookup(ctx, r.store, videoLinkKey(videoID))
	if err != nil {
		return "", false, apperrors.NewStorageUnavailableError("read video link", err)
	}
	return string(raw), found, nil
}

// GetAll returns every stored link keyed by video id. Keys that do not parse
// as a video id are ignored.
func (r *VideoLinkRepository) GetAll(ctx context.Context) (map[int]string, error) {
	keys, err := r.store.List(ctx, videoLinkKeyPrefix)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError("list video links", err)
	}

	links := make(map[int]string, len(keys))
	for _, key := range keys {
		id, err := strconv.Atoi(strings.TrimPrefix(key, videoLinkKeyPrefix))
		if err != nil {
			continue
		}
		url, found, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			links[id] = url
		}
	}
	return links, nil
}

// Set stores url for videoID
func (r *VideoLinkRepository) Set(ctx context.Context, videoID int, url string) error {
	if err := r.store.Set(ctx, videoLinkKey(videoID), []byte(url)); err != nil {
		return apperrors.NewStorageUnavailableError("write video link", err)
	}
	return nil
}

// Delete removes the link for videoID
func (r *VideoLinkRepository) Delete(ctx context.Context, videoID int) error {
	if err := r.store.Delete(ctx, videoLinkKey(videoID)); err != nil {
		return apperrors.NewStorageUnavailableError("delete video link", err)
	}
	return nil
}
