package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: write collided with existing state
// - ErrUnavailable: backing service or lock temporarily unavailable
// - ErrInvalidInput: caller supplied data the store cannot accept
//
// For request validation, use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
