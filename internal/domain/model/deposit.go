package model

import (
	"strings"
	"time"
)

// DepositMethod is a payment channel as advertised by the gateway.
// The list is fetched fresh per request and never cached locally.
type DepositMethod struct {
	Name string // display label, e.g. "QRIS INSTANT"
	Code string // gateway method code ("metode")
	Type string // gateway method type
}

// DepositInvoice is a gateway-issued payment request. Nominal is the settled
// amount and may differ from the requested amount (gateway fees, unique codes).
type DepositInvoice struct {
	ID          string
	ReferenceID string
	QRString    string
	Nominal     int64
}

// DepositStatusRecord is the gateway's view of a deposit, as returned by the
// status endpoint. CreatedAt is kept in the gateway's own string format.
type DepositStatusRecord struct {
	ID          string
	ReferenceID string
	MethodCode  string
	Nominal     int64
	CreatedAt   string
	Status      string
}

// Known gateway deposit statuses. Matching is case-insensitive.
const (
	DepositStatusSuccess    = "success"
	DepositStatusPending    = "pending"
	DepositStatusExpired    = "expired"
	DepositStatusFailed     = "failed"
	DepositStatusProcessing = "processing"
)

var statusLabels = map[string]string{
	DepositStatusSuccess:    "✅ Berhasil",
	DepositStatusPending:    "⏳ Pending",
	DepositStatusExpired:    "❌ Kedaluwarsa",
	DepositStatusFailed:     "❗️ Gagal",
	DepositStatusProcessing: "⚙️ Diproses",
}

// StatusLabel maps a raw gateway status onto its user-facing indicator.
// Unrecognized values fall back to the unknown marker with the raw text.
func StatusLabel(raw string) string {
	if label, ok := statusLabels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return label
	}
	return "❓ " + raw
}

// IsTerminalStatus reports whether a deposit can no longer change state.
func IsTerminalStatus(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case DepositStatusSuccess, DepositStatusExpired, DepositStatusFailed:
		return true
	}
	return false
}

// Deposit is our own audit record of an invoice we asked the gateway to
// create. The gateway remains the source of truth for live status; this row
// exists so confirmations and support lookups survive a restart.
type Deposit struct {
	ID          string // UUID
	ChatID      int64
	ReferenceID string // TOPUP-<chat>-<ts>, also sent to the gateway
	DepositID   string // gateway invoice id
	MethodCode  string
	Amount      int64 // requested amount
	Nominal     int64 // settled amount from the gateway
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
