package service

import "errors"

var (
	ErrEmptyPayload    = errors.New("payload must be a non-empty string")
	ErrEmptyKey        = errors.New("key must be a non-empty string")
	ErrPayloadNotFound = errors.New("short code not found")
)
