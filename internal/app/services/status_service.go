package services

import (
	"context"
	"time"

	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// StatusService reports the health of the storage backends
type StatusService struct {
	store     kvstore.Store
	backend   string
	directory string
	timeout   time.Duration
}

// NewStatusService creates a new StatusService
func NewStatusService(store kvstore.Store, backend, directory string, timeout time.Duration) *StatusService {
	if timeout <= 0 {
		timeout = defaultBackendCallTimeout
	}
	return &StatusService{store: store, backend: backend, directory: directory, timeout: timeout}
}

// Storage pings the key-value backend
func (s *StatusService) Storage(ctx context.Context) dto.StorageStatusResponse {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.store.Ping(ctx)
	resp := dto.StorageStatusResponse{
		Backend:   s.backend,
		Directory: s.directory,
		Connected: err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
