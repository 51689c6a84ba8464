package service

import (
	"errors"

	"reloop-service/internal/geo"
)

// Guard errors. Every violated guard aborts the operation before any state
// is mutated; the one exception is the documented category override during
// approval, which rejects the return instead of failing the call.
var (
	// ErrInvalidCoordinate is re-exported so callers have one error surface.
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate

	ErrCategoryNotReturnable = errors.New("category is not returnable")
	ErrInvalidDecision       = errors.New("invalid decision")
	ErrInvalidCondition      = errors.New("invalid condition classification")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrApprovalRequired      = errors.New("return must be approved first")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("not authorized")

	// ErrConflict is returned when a per-entity lock is held by another
	// request; callers may retry.
	ErrConflict = errors.New("resource is busy")
)
