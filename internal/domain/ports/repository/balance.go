package repository

import "context"

// BalanceRepository holds the application balance per chat, in whole rupiah.
type BalanceRepository interface {
	Get(ctx context.Context, chatID int64) (int64, error)
	// Credit adds amount to the balance and returns the new total.
	Credit(ctx context.Context, chatID int64, amount int64) (int64, error)
}
