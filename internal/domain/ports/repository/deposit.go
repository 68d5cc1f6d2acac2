package repository

import (
	"context"
	"time"

	"telegram-topup-bot/internal/domain/model"
)

// DepositRepository is the audit trail of invoices we created.
type DepositRepository interface {
	Save(ctx context.Context, d *model.Deposit) error
	FindByReference(ctx context.Context, referenceID string) (*model.Deposit, error)
	// UpdateStatus transitions the row for referenceID and records the
	// settled amount when the gateway reports one (pass 0 to keep it).
	UpdateStatus(ctx context.Context, referenceID, status string, nominal int64) error
	// ListPendingOlderThan returns pending deposits created before cutoff,
	// oldest first, capped at limit.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Deposit, error)
}
