package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-topup-bot/internal/domain"
	"telegram-topup-bot/internal/domain/ports/repository"
)

var _ repository.ReferenceRepository = (*ReferenceRepo)(nil)

// ReferenceRepo routes gateway reference ids back to chats. Entries carry a
// TTL so abandoned invoices cannot grow the keyspace forever.
type ReferenceRepo struct {
	client *Client
	ttl    time.Duration
}

func NewReferenceRepo(client *Client, ttl time.Duration) *ReferenceRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReferenceRepo{client: client, ttl: ttl}
}

func (r *ReferenceRepo) refKey(referenceID string) string {
	return fmt.Sprintf("reff_chat:%s", referenceID)
}

func (r *ReferenceRepo) Save(ctx context.Context, referenceID string, chatID int64) error {
	return r.client.Set(ctx, r.refKey(referenceID), chatID, r.ttl)
}

func (r *ReferenceRepo) Resolve(ctx context.Context, referenceID string) (int64, error) {
	data, err := r.client.Get(ctx, r.refKey(referenceID))
	if err != nil {
		if IsNil(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return strconv.ParseInt(data, 10, 64)
}

func (r *ReferenceRepo) Delete(ctx context.Context, referenceID string) error {
	return r.client.Del(ctx, r.refKey(referenceID))
}
