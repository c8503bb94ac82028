package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidQuote  = errors.New("invalid quote")
	ErrStaleVersion  = errors.New("stale version")
)
