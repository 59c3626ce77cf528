package model

import "time"

// PayloadRecord is a content-addressed payload held by the replica store.
// Rows whose ExpiresAt has passed are treated as absent.
type PayloadRecord struct {
	HashKey   string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PayloadRecord) TableName() string { return "payload_records" }
