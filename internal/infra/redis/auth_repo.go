package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/repository"
)

var _ repository.AuthRepository = (*AuthRepo)(nil)

// AuthRepo stores which gateway account is logged in per chat. Sessions do
// not expire on their own; the login flow clears them explicitly.
type AuthRepo struct {
	client *Client
}

func NewAuthRepo(client *Client) *AuthRepo {
	return &AuthRepo{client: client}
}

func (a *AuthRepo) sessionKey(chatID int64) string {
	return fmt.Sprintf("auth_session:%d", chatID)
}

func (a *AuthRepo) ActiveUser(ctx context.Context, chatID int64) (*model.ActiveUser, error) {
	data, err := a.client.Get(ctx, a.sessionKey(chatID))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}

	var user model.ActiveUser
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthRepo) SetActiveUser(ctx context.Context, user *model.ActiveUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.sessionKey(user.ChatID), data, 0)
}

func (a *AuthRepo) ClearActiveUser(ctx context.Context, chatID int64) error {
	return a.client.Del(ctx, a.sessionKey(chatID))
}
