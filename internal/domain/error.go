package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrNotAuthenticated = errors.New("no active user for this chat")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrGatewayFailure   = errors.New("deposit gateway request failed")
	ErrMethodNotFound   = errors.New("deposit method not found")
	ErrInvoiceFailure   = errors.New("deposit invoice was not created")
	ErrFlowBusy         = errors.New("another submission is being processed for this chat")
	ErrOperationFailed  = errors.New("operation failed")
)
