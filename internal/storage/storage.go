package storage

import "errors"

var (
	ErrorNoSuchKey  = errors.New("no such key")
	ErrInvalidValue = errors.New("invalid cached value")
	ErrUnknownCache = errors.New("unknown cache driver")
)
