package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/domain"
	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/infra/i18n"
	"telegram-topup-bot/internal/infra/metrics"
)

// WebhookEvent is a deposit state change delivered by the gateway.
type WebhookEvent struct {
	ReferenceID string
	DepositID   string
	Status      string
	Nominal     int64
}

// Compile-time check
var _ ConfirmUseCase = (*confirmUC)(nil)

type ConfirmUseCase interface {
	// Confirm applies a gateway callback: on success it credits the chat's
	// balance exactly once and notifies the user. Unknown references are
	// acknowledged and dropped so the gateway stops retrying.
	Confirm(ctx context.Context, ev WebhookEvent) error
}

type confirmUC struct {
	refs     repository.ReferenceRepository
	deposits repository.DepositRepository
	balance  repository.BalanceRepository
	bot      adapter.TelegramBotAdapter
	tr       *i18n.Translator
	log      *zerolog.Logger
}

func NewConfirmUseCase(
	refs repository.ReferenceRepository,
	deposits repository.DepositRepository,
	balance repository.BalanceRepository,
	bot adapter.TelegramBotAdapter,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *confirmUC {
	return &confirmUC{refs: refs, deposits: deposits, balance: balance, bot: bot, tr: tr, log: logger}
}

func (u *confirmUC) Confirm(ctx context.Context, ev WebhookEvent) error {
	chatID, err := u.refs.Resolve(ctx, ev.ReferenceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("reference_id", ev.ReferenceID).Msg("webhook for unknown reference, dropping")
			metrics.IncWebhookEvent("ignored")
			return nil
		}
		return err
	}

	status := strings.ToLower(strings.TrimSpace(ev.Status))

	if status != model.DepositStatusSuccess {
		if err := u.deposits.UpdateStatus(ctx, ev.ReferenceID, status, ev.Nominal); err != nil {
			u.log.Warn().Err(err).Str("reference_id", ev.ReferenceID).Msg("deposit status update failed")
		}
		if model.IsTerminalStatus(status) {
			_ = u.refs.Delete(ctx, ev.ReferenceID)
		}
		metrics.IncWebhookEvent(status)
		return nil
	}

	// Replays of a confirmed deposit must not credit twice.
	if d, err := u.deposits.FindByReference(ctx, ev.ReferenceID); err == nil && d.Status == model.DepositStatusSuccess {
		u.log.Info().Str("reference_id", ev.ReferenceID).Msg("webhook replay for settled deposit, dropping")
		metrics.IncWebhookEvent("ignored")
		return nil
	}

	newBalance, err := u.balance.Credit(ctx, chatID, ev.Nominal)
	if err != nil {
		return err
	}

	if err := u.deposits.UpdateStatus(ctx, ev.ReferenceID, model.DepositStatusSuccess, ev.Nominal); err != nil {
		u.log.Warn().Err(err).Str("reference_id", ev.ReferenceID).Msg("deposit status update failed")
	}
	_ = u.refs.Delete(ctx, ev.ReferenceID)

	metrics.IncWebhookEvent("confirmed")
	metrics.AddBalanceCredited(ev.Nominal)
	u.log.Info().
		Int64("chat_id", chatID).
		Str("reference_id", ev.ReferenceID).
		Int64("nominal", ev.Nominal).
		Int64("balance", newBalance).
		Msg("deposit confirmed and credited")

	_, err = u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      u.tr.T("payment_received", ev.DepositID, formatRupiah(ev.Nominal), formatRupiah(newBalance)),
		ParseMode: "Markdown",
	})
	return err
}
