package service

import (
	"context"

	"go.uber.org/zap"

	"exnotify/payloadhub/internal/repository"
)

// AdminStorage adds the maintenance operations of the hybrid store.
type AdminStorage interface {
	PayloadStorage
	Delete(ctx context.Context, key string)
	List(ctx context.Context) []repository.Record
	PurgeExpired(ctx context.Context) (int64, error)
}

type AdminService interface {
	ListPayloads(ctx context.Context) []repository.Record
	GetPayload(ctx context.Context, key string) (string, error)
	DeletePayload(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type adminService struct {
	store  AdminStorage
	logger *zap.Logger
}

func NewAdminService(store AdminStorage, logger *zap.Logger) AdminService {
	return &adminService{store: store, logger: logger}
}

func (s *adminService) ListPayloads(ctx context.Context) []repository.Record {
	return s.store.List(ctx)
}

func (s *adminService) GetPayload(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	payload, ok := s.store.Get(ctx, key)
	if !ok {
		return "", ErrPayloadNotFound
	}
	return payload, nil
}

func (s *adminService) DeletePayload(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.store.Delete(ctx, key)
	s.logger.Info("payload deleted", zap.String("key", key))
	return nil
}

func (s *adminService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpired(ctx)
}

var _ AdminService = (*adminService)(nil)
