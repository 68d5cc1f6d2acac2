package redis

import (
	"context"
	"fmt"
	"strconv"

	"telegram-topup-bot/internal/domain/ports/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo keeps the per-chat application balance as a plain integer key.
// Credits arrive from the confirmation webhook; no key expiry here.
type BalanceRepo struct {
	client *Client
}

func NewBalanceRepo(client *Client) *BalanceRepo {
	return &BalanceRepo{client: client}
}

func (b *BalanceRepo) balanceKey(chatID int64) string {
	return fmt.Sprintf("balance:%d", chatID)
}

func (b *BalanceRepo) Get(ctx context.Context, chatID int64) (int64, error) {
	data, err := b.client.Get(ctx, b.balanceKey(chatID))
	if err != nil {
		if IsNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(data, 10, 64)
}

func (b *BalanceRepo) Credit(ctx context.Context, chatID int64, amount int64) (int64, error) {
	return b.client.IncrBy(ctx, b.balanceKey(chatID), amount)
}
