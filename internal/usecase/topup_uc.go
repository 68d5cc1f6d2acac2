package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/infra/i18n"
	"telegram-topup-bot/internal/infra/metrics"
)

// Inline action codes used as callback data.
const (
	ActionTopUpAuto   = "topup_auto"
	ActionTopUpManual = "topup_manual"
)

const (
	// Minimum top-up in whole rupiah (the currency's minor-unit floor).
	minTopUpAmount = 1000
	// The instant QR channel is matched on its display name, exactly but
	// case-insensitively, against the freshly fetched method list.
	qrisMethodName = "QRIS INSTANT"
)

// Compile-time check
var _ TopUpUseCase = (*topUpUC)(nil)

type TopUpUseCase interface {
	// PresentMenu edits the pressed menu message into the top-up menu.
	// Requires an active user; otherwise a login prompt is sent instead.
	PresentMenu(ctx context.Context, chatID int64, messageID int) error
	// SelectAction reacts to a top-up menu button press.
	SelectAction(ctx context.Context, chatID int64, messageID int, action string) error
	// SubmitAmount consumes free text when the chat is awaiting an amount.
	// It reports false when the session marker does not match, so the
	// caller can route the input elsewhere.
	SubmitAmount(ctx context.Context, chatID int64, text string) (bool, error)
}

type topUpUC struct {
	states   repository.StateRepository
	refs     repository.ReferenceRepository
	deposits repository.DepositRepository
	auth     repository.AuthRepository
	balance  repository.BalanceRepository
	gateway  adapter.DepositGateway
	bot      adapter.TelegramBotAdapter
	renderQR func(payload string) ([]byte, error)
	tr       *i18n.Translator
	log      *zerolog.Logger
}

func NewTopUpUseCase(
	states repository.StateRepository,
	refs repository.ReferenceRepository,
	deposits repository.DepositRepository,
	auth repository.AuthRepository,
	balance repository.BalanceRepository,
	gateway adapter.DepositGateway,
	bot adapter.TelegramBotAdapter,
	renderQR func(payload string) ([]byte, error),
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *topUpUC {
	return &topUpUC{
		states:   states,
		refs:     refs,
		deposits: deposits,
		auth:     auth,
		balance:  balance,
		gateway:  gateway,
		bot:      bot,
		renderQR: renderQR,
		tr:       tr,
		log:      logger,
	}
}

func (u *topUpUC) PresentMenu(ctx context.Context, chatID int64, messageID int) error {
	user, err := u.auth.ActiveUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		_, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("login_required"),
		})
		return err
	}

	bal, err := u.balance.Get(ctx, chatID)
	if err != nil {
		u.log.Warn().Err(err).Int64("chat_id", chatID).Msg("balance lookup failed, showing zero")
		bal = 0
	}

	rows := [][]adapter.InlineButton{
		{{Text: u.tr.T("btn_topup_manual"), Data: ActionTopUpManual}},
		{{Text: u.tr.T("btn_topup_auto"), Data: ActionTopUpAuto}},
		{{Text: u.tr.T("btn_back_main"), Data: "menu_back_main"}},
	}
	return u.bot.EditMessage(ctx, chatID, messageID, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      u.tr.T("topup_menu", formatRupiah(bal)),
		ParseMode: "Markdown",
		Buttons:   rows,
	})
}

func (u *topUpUC) SelectAction(ctx context.Context, chatID int64, messageID int, action string) error {
	switch action {
	case ActionTopUpAuto:
		if err := u.bot.EditMessage(ctx, chatID, messageID, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("ask_topup_amount"),
		}); err != nil {
			return err
		}
		return u.states.SetState(ctx, chatID, &repository.ConversationState{Step: repository.StepAwaitingTopUpAmount})
	case ActionTopUpManual:
		// Manual top-up goes through an admin; nothing automated yet.
		return nil
	default:
		return nil
	}
}

func (u *topUpUC) SubmitAmount(ctx context.Context, chatID int64, text string) (bool, error) {
	state, err := u.states.GetState(ctx, chatID)
	if err != nil {
		return false, err
	}
	if state == nil || state.Step != repository.StepAwaitingTopUpAmount {
		return false, nil
	}

	// The flow owns this input from here on, including failure branches.
	if err := u.submitAmount(ctx, chatID, text); err != nil {
		u.log.Error().Err(err).Int64("chat_id", chatID).Msg("top-up amount submission failed")
		metrics.IncDepositInvoice("error")
		_, sendErr := u.bot.SendMessage(ctx, adapter.SendMessageParams{
			ChatID:    chatID,
			Text:      u.tr.T("technical_error", err.Error()),
			ParseMode: "Markdown",
		})
		return true, sendErr
	}
	return true, nil
}

func (u *topUpUC) submitAmount(ctx context.Context, chatID int64, text string) error {
	amount, parseErr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if parseErr != nil {
		// Marker stays set so the user can retry with a corrected value.
		_, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("invalid_amount"),
		})
		return err
	}
	if amount < minTopUpAmount {
		_, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("min_topup_amount"),
		})
		return err
	}

	if err := u.states.ClearState(ctx, chatID); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	progressID, err := u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID: chatID,
		Text:   u.tr.T("creating_invoice"),
	})
	if err != nil {
		return fmt.Errorf("send progress message: %w", err)
	}

	methods, err := u.gateway.ListMethods(ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("deposit method list unavailable")
		metrics.IncDepositInvoice("methods_unavailable")
		return u.bot.EditMessage(ctx, chatID, progressID, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("methods_fetch_failed"),
		})
	}

	var qris *model.DepositMethod
	for i := range methods {
		if strings.EqualFold(methods[i].Name, qrisMethodName) {
			qris = &methods[i]
			break
		}
	}
	if qris == nil {
		metrics.IncDepositInvoice("method_not_found")
		return u.bot.EditMessage(ctx, chatID, progressID, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("method_not_found"),
		})
	}

	referenceID := fmt.Sprintf("TOPUP-%d-%d", chatID, time.Now().Unix())

	invoice, err := u.gateway.CreateDeposit(ctx, amount, qris.Code, qris.Type, referenceID)
	if err != nil || invoice == nil || invoice.QRString == "" {
		if err != nil {
			u.log.Warn().Err(err).Str("reference_id", referenceID).Msg("invoice creation failed")
		}
		metrics.IncDepositInvoice("invoice_failed")
		return u.bot.EditMessage(ctx, chatID, progressID, adapter.SendMessageParams{
			ChatID: chatID,
			Text:   u.tr.T("invoice_failed"),
		})
	}

	if err := u.refs.Save(ctx, referenceID, chatID); err != nil {
		return fmt.Errorf("record reference mapping: %w", err)
	}

	settled := invoice.Nominal
	if settled == 0 {
		settled = amount
	}

	now := time.Now()
	if err := u.deposits.Save(ctx, &model.Deposit{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		ReferenceID: referenceID,
		DepositID:   invoice.ID,
		MethodCode:  qris.Code,
		Amount:      amount,
		Nominal:     settled,
		Status:      model.DepositStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		// The gateway holds the invoice either way; keep the flow going.
		u.log.Warn().Err(err).Str("reference_id", referenceID).Msg("deposit audit save failed")
	}

	png, err := u.renderQR(invoice.QRString)
	if err != nil {
		return fmt.Errorf("render qr: %w", err)
	}

	if err := u.bot.DeleteMessage(ctx, chatID, progressID); err != nil {
		u.log.Debug().Err(err).Msg("could not delete progress message")
	}

	caption := u.tr.T("invoice_caption", formatRupiah(settled), invoice.ID)
	if err := u.bot.SendPhoto(ctx, adapter.SendPhotoParams{
		ChatID:    chatID,
		Photo:     png,
		Caption:   caption,
		ParseMode: "Markdown",
		Buttons: [][]adapter.InlineButton{
			{{Text: u.tr.T("btn_check_payment"), Data: "check_deposit_" + invoice.ID}},
		},
	}); err != nil {
		return fmt.Errorf("send invoice photo: %w", err)
	}

	metrics.IncDepositInvoice("created")
	u.log.Info().
		Int64("chat_id", chatID).
		Str("reference_id", referenceID).
		Str("deposit_id", invoice.ID).
		Int64("amount", amount).
		Int64("nominal", settled).
		Msg("top-up invoice created")
	return nil
}
