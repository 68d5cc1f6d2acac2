package repository

import "context"

// Steps a conversation can be waiting on. A chat has at most one pending
// step at a time; starting a new flow overwrites the previous one silently.
const (
	StepAwaitingTopUpAmount = "awaiting_topup_amount"
	StepAwaitingDepositID   = "awaiting_deposit_id"
)

// ConversationState records which free-text input we expect from a chat next.
type ConversationState struct {
	Step string            `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// StateRepository is the port for the per-chat session marker.
// GetState returns (nil, nil) when the chat has no pending input.
type StateRepository interface {
	SetState(ctx context.Context, chatID int64, state *ConversationState) error
	GetState(ctx context.Context, chatID int64) (*ConversationState, error)
	ClearState(ctx context.Context, chatID int64) error
}
