package repository

import (
	"context"

	"telegram-topup-bot/internal/domain/model"
)

// AuthRepository exposes the account session the login flow maintains.
// ActiveUser returns (nil, nil) when nobody is logged in for the chat.
type AuthRepository interface {
	ActiveUser(ctx context.Context, chatID int64) (*model.ActiveUser, error)
	SetActiveUser(ctx context.Context, user *model.ActiveUser) error
	ClearActiveUser(ctx context.Context, chatID int64) error
}
