package adapter

import (
	"context"

	"telegram-topup-bot/internal/domain/model"
)

// DepositGateway is the hex port for the external deposit provider.
type DepositGateway interface {
	Name() string

	// ListMethods fetches the account's available deposit channels.
	ListMethods(ctx context.Context) ([]model.DepositMethod, error)
	// CreateDeposit opens a payment invoice for amount through the given
	// method; referenceID is our correlation token for the callback.
	CreateDeposit(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error)
	// CheckStatus queries a deposit by the gateway's invoice id.
	CheckStatus(ctx context.Context, depositID string) (*model.DepositStatusRecord, error)
	// RequestInstant opens an instant-settlement deposit. Part of the
	// provider contract; the conversational flows do not use it.
	RequestInstant(ctx context.Context, amount int64, methodCode, referenceID string) (*model.DepositInvoice, error)
}
