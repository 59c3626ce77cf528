package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exnotify/payloadhub/internal/model"
)

type pgReplicaStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPGReplicaStore(db *gorm.DB) ReplicaStore {
	return &pgReplicaStore{db: db, now: time.Now}
}

func (r *pgReplicaStore) Get(ctx context.Context, key string) (string, bool, error) {
	var rec model.PayloadRecord
	err := r.db.WithContext(ctx).
		Where("hash_key = ? AND expires_at > ?", key, r.now()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Payload, true, nil
}

func (r *pgReplicaStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	now := r.now()
	rec := model.PayloadRecord{
		HashKey:   key,
		Payload:   value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).
		Create(&rec).Error
}

func (r *pgReplicaStore) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&model.PayloadRecord{}, "hash_key = ?", key).Error
}

func (r *pgReplicaStore) List(ctx context.Context) ([]Record, error) {
	var rows []model.PayloadRecord
	if err := r.db.WithContext(ctx).
		Select("hash_key", "payload").
		Where("expires_at > ?", r.now()).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{Key: row.HashKey, Value: row.Payload})
	}
	return out, nil
}

func (r *pgReplicaStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&model.PayloadRecord{})
	return res.RowsAffected, res.Error
}
