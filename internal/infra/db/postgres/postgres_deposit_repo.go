package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-topup-bot/internal/domain"
	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/repository"
)

var _ repository.DepositRepository = (*depositRepo)(nil)

// depositRepo persists the audit trail of created invoices.
//
// Schema:
//
//	CREATE TABLE deposits (
//	    id           UUID PRIMARY KEY,
//	    chat_id      BIGINT NOT NULL,
//	    reference_id TEXT NOT NULL UNIQUE,
//	    deposit_id   TEXT NOT NULL,
//	    method_code  TEXT NOT NULL,
//	    amount       BIGINT NOT NULL,
//	    nominal      BIGINT NOT NULL,
//	    status       TEXT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
type depositRepo struct{ pool *pgxpool.Pool }

func NewDepositRepo(pool *pgxpool.Pool) *depositRepo {
	return &depositRepo{pool: pool}
}

func (r *depositRepo) Save(ctx context.Context, d *model.Deposit) error {
	const q = `
INSERT INTO deposits (
  id, chat_id, reference_id, deposit_id, method_code, amount, nominal, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := r.pool.Exec(ctx, q, d.ID, d.ChatID, d.ReferenceID, d.DepositID, d.MethodCode, d.Amount, d.Nominal, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrInvalidArgument
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *depositRepo) FindByReference(ctx context.Context, referenceID string) (*model.Deposit, error) {
	const q = `
SELECT id, chat_id, reference_id, deposit_id, method_code, amount, nominal, status, created_at, updated_at
FROM deposits WHERE reference_id=$1;`

	d := &model.Deposit{}
	err := r.pool.QueryRow(ctx, q, referenceID).Scan(
		&d.ID, &d.ChatID, &d.ReferenceID, &d.DepositID, &d.MethodCode, &d.Amount, &d.Nominal, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return d, nil
}

func (r *depositRepo) UpdateStatus(ctx context.Context, referenceID, status string, nominal int64) error {
	const q = `
UPDATE deposits
SET status=$2, nominal=CASE WHEN $3 > 0 THEN $3 ELSE nominal END, updated_at=NOW()
WHERE reference_id=$1;`

	tag, err := r.pool.Exec(ctx, q, referenceID, status, nominal)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *depositRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Deposit, error) {
	const q = `
SELECT id, chat_id, reference_id, deposit_id, method_code, amount, nominal, status, created_at, updated_at
FROM deposits
WHERE status='pending' AND created_at < $1
ORDER BY created_at ASC
LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Deposit
	for rows.Next() {
		d := &model.Deposit{}
		if err := rows.Scan(
			&d.ID, &d.ChatID, &d.ReferenceID, &d.DepositID, &d.MethodCode, &d.Amount, &d.Nominal, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, domain.ErrOperationFailed
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
