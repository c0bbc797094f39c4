package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Next issues the next value. Issued values are committed immediately and
	// never reused, even when the caller's own work later fails.
	Next(ctx context.Context, counter Counter) (int64, error)
	// Heal raises the counter to its floor; it reports whether it moved.
	Heal(ctx context.Context, counter Counter) (bool, error)
	Current(ctx context.Context, name string) (int64, error)
}

var (
	ErrInvalidName = errors.New("invalid_sequence_name")
	ErrExhausted   = errors.New("sequence_not_advanced")
)
