package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"exnotify/payloadhub/internal/storage"
	"exnotify/payloadhub/pkg/contenthash"
)

// PayloadStorage is the part of the hybrid store the compress/decompress
// flow needs.
type PayloadStorage interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string, opts ...storage.PutOption) error
}

type PayloadService interface {
	// Compress stores payload under its content key and returns the key.
	Compress(ctx context.Context, payload string) (string, error)
	// Decompress returns the payload stored under key.
	Decompress(ctx context.Context, key string) (string, error)
}

type payloadService struct {
	store  PayloadStorage
	logger *zap.Logger
}

func NewPayloadService(store PayloadStorage, logger *zap.Logger) PayloadService {
	return &payloadService{store: store, logger: logger}
}

// Compress skips the write when the key already resolves. The check and the
// write are not atomic; two concurrent calls for a new payload may both write,
// which is harmless because they write the same bytes under the same key.
func (s *payloadService) Compress(ctx context.Context, payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}

	key := contenthash.Of(payload)
	if _, exists := s.store.Get(ctx, key); exists {
		s.logger.Debug("payload already stored", zap.String("key", key))
		return key, nil
	}

	if err := s.store.Put(ctx, key, payload); err != nil {
		return "", fmt.Errorf("store payload: %w", err)
	}
	s.logger.Debug("payload stored", zap.String("key", key), zap.Int("bytes", len(payload)))
	return key, nil
}

// Decompress cannot tell a missing key from unreachable backends; both are
// ErrPayloadNotFound.
func (s *payloadService) Decompress(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	payload, ok := s.store.Get(ctx, key)
	if !ok {
		return "", ErrPayloadNotFound
	}
	return payload, nil
}

var _ PayloadService = (*payloadService)(nil)
