package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/infra/i18n"
	"telegram-topup-bot/internal/infra/metrics"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

type StatusUseCase interface {
	// PromptDepositID asks for a deposit id and arms the session marker.
	// Deliberately has no authentication precondition.
	PromptDepositID(ctx context.Context, chatID int64) error
	// SubmitDepositID consumes free text when the chat is awaiting a
	// deposit id; reports false when the marker does not match.
	SubmitDepositID(ctx context.Context, chatID int64, text string) (bool, error)
	// ReportStatus runs a status inquiry for a known deposit id, e.g.
	// from the check-payment button under an invoice.
	ReportStatus(ctx context.Context, chatID int64, depositID string) error
}

type statusUC struct {
	states  repository.StateRepository
	gateway adapter.DepositGateway
	bot     adapter.TelegramBotAdapter
	tr      *i18n.Translator
	log     *zerolog.Logger
}

func NewStatusUseCase(
	states repository.StateRepository,
	gateway adapter.DepositGateway,
	bot adapter.TelegramBotAdapter,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *statusUC {
	return &statusUC{states: states, gateway: gateway, bot: bot, tr: tr, log: logger}
}

func (u *statusUC) PromptDepositID(ctx context.Context, chatID int64) error {
	if _, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID: chatID,
		Text:   u.tr.T("ask_deposit_id"),
	}); err != nil {
		return err
	}
	return u.states.SetState(ctx, chatID, &repository.ConversationState{Step: repository.StepAwaitingDepositID})
}

func (u *statusUC) SubmitDepositID(ctx context.Context, chatID int64, text string) (bool, error) {
	state, err := u.states.GetState(ctx, chatID)
	if err != nil {
		return false, err
	}
	if state == nil || state.Step != repository.StepAwaitingDepositID {
		return false, nil
	}

	depositID := strings.TrimSpace(text)

	// Unlike the amount flow, the marker is always consumed here; a bad id
	// means running the inquiry again from the menu.
	if err := u.states.ClearState(ctx, chatID); err != nil {
		return true, err
	}

	return true, u.ReportStatus(ctx, chatID, depositID)
}

func (u *statusUC) ReportStatus(ctx context.Context, chatID int64, depositID string) error {
	progressID, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      u.tr.T("checking_status", depositID),
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}

	record, err := u.gateway.CheckStatus(ctx, depositID)
	if err != nil || record == nil {
		// Not-found and gateway failure are indistinguishable to the user.
		if err != nil {
			u.log.Warn().Err(err).Str("deposit_id", depositID).Msg("deposit status inquiry failed")
		}
		metrics.IncStatusCheck("not_found")
		return u.bot.EditMessage(ctx, chatID, progressID, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("status_not_found"),
		})
	}

	metrics.IncStatusCheck(record.Status)
	text := u.tr.T("status_report",
		orNA(record.ID),
		orNA(record.ReferenceID),
		orNA(record.MethodCode),
		formatRupiah(record.Nominal),
		orNA(record.CreatedAt),
		model.StatusLabel(record.Status),
	)
	return u.bot.EditMessage(ctx, chatID, progressID, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
