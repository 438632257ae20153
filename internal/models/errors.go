package models

import "errors"

// Trade rejections. Handlers match these with errors.Is.
var (
	ErrInvalidOrder       = errors.New("invalid trade parameters")
	ErrInsufficientFunds  = errors.New("insufficient cash to complete this purchase")
	ErrInsufficientShares = errors.New("not enough shares to sell")
)

// ErrTransientStoreConflict is returned when a commit keeps losing the
// version race. The caller may retry the whole request.
var ErrTransientStoreConflict = errors.New("portfolio was modified concurrently, please try again")

// ErrCollaboratorUnavailable wraps failures of external market data, news,
// sentiment and narrative providers.
var ErrCollaboratorUnavailable = errors.New("external collaborator unavailable")

// Record store errors. These never cross the storage package boundary
// except as ErrTransientStoreConflict.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record version conflict")
)
