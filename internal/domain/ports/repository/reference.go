package repository

import "context"

// ReferenceRepository routes gateway reference ids back to the chat that
// created the invoice. Entries expire with the invoice (store-level TTL) and
// are deleted once the deposit reaches a terminal status.
type ReferenceRepository interface {
	Save(ctx context.Context, referenceID string, chatID int64) error
	// Resolve returns the chat id for a reference, or domain.ErrNotFound.
	Resolve(ctx context.Context, referenceID string) (int64, error)
	Delete(ctx context.Context, referenceID string) error
}
