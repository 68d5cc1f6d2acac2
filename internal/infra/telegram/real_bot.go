package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/config"
	"telegram-topup-bot/internal/domain"
	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/infra/i18n"
	"telegram-topup-bot/internal/infra/redis"
	"telegram-topup-bot/internal/usecase"
)

// Callback data values routed by handleCallback. The top-up action codes
// live in the usecase package next to the flow that owns them.
const (
	cbMenuTopUp       = "menu_topup"
	cbMenuCheckStatus = "menu_check_status"
	cbMenuBackMain    = "menu_back_main"
	cbCheckDeposit    = "check_deposit_"
)

// Free-text messages per chat per minute before the limiter kicks in.
const messagesPerMinute = 20

// RealTelegramBotAdapter implements adapter.TelegramBotAdapter using tgbotapi with concurrent polling.
type RealTelegramBotAdapter struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	auth    repository.AuthRepository
	limiter *redis.RateLimiter
	locker  redis.Locker
	tr      *i18n.Translator
	log     *zerolog.Logger

	topUp  usecase.TopUpUseCase
	status usecase.StatusUseCase

	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	// cancelPolling cancels polling when called
	cancelPolling context.CancelFunc
}

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// NewRealTelegramBotAdapter creates a new bot adapter. The flow handlers are
// attached afterwards with Bind, since they need the adapter to send with.
func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	auth repository.AuthRepository,
	limiter *redis.RateLimiter,
	locker redis.Locker,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if auth == nil {
		return nil, errors.New("auth repository is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		auth:          auth,
		limiter:       limiter,
		locker:        locker,
		tr:            tr,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

// Bind attaches the conversation flows that consume incoming updates.
func (r *RealTelegramBotAdapter) Bind(topUp usecase.TopUpUseCase, status usecase.StatusUseCase) {
	r.topUp = topUp
	r.status = status
}

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	// Dispatcher goroutine: feed updates into updateChan
	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return r.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (r *RealTelegramBotAdapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	// Stop the client-side spinner regardless of what the handler does.
	if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		r.log.Debug().Err(err).Msg("callback ack failed")
	}

	data := cb.Data
	switch {
	case data == cbMenuTopUp:
		return r.topUp.PresentMenu(ctx, chatID, messageID)
	case data == usecase.ActionTopUpAuto || data == usecase.ActionTopUpManual:
		return r.topUp.SelectAction(ctx, chatID, messageID, data)
	case data == cbMenuCheckStatus:
		return r.status.PromptDepositID(ctx, chatID)
	case data == cbMenuBackMain:
		return r.editToMainMenu(ctx, chatID, messageID)
	case strings.HasPrefix(data, cbCheckDeposit):
		return r.status.ReportStatus(ctx, chatID, strings.TrimPrefix(data, cbCheckDeposit))
	default:
		r.log.Debug().Str("data", data).Msg("unrouted callback")
		return nil
	}
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	allowed, err := r.limiter.Allow(ctx, redis.UserCommandKey(chatID, "message"), messagesPerMinute, time.Minute)
	if err != nil {
		r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("rate limiter unavailable, letting message through")
	} else if !allowed {
		_, err := r.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: r.tr.T("rate_limited")})
		return err
	}

	if msg.IsCommand() {
		return r.handleCommand(ctx, msg)
	}

	return r.dispatchText(ctx, chatID, msg.Text)
}

// dispatchText offers free text to each armed flow in turn. The chat lock
// keeps a double-send from racing two workers into the same session marker.
func (r *RealTelegramBotAdapter) dispatchText(ctx context.Context, chatID int64, text string) error {
	lockKey := redis.ChatLockKey(chatID)
	token, err := r.locker.TryLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		if errors.Is(err, domain.ErrFlowBusy) {
			r.log.Debug().Int64("chat_id", chatID).Msg("chat busy, dropping message")
			return nil
		}
		return err
	}
	defer func() {
		if err := r.locker.Unlock(ctx, lockKey, token); err != nil {
			r.log.Debug().Err(err).Int64("chat_id", chatID).Msg("chat lock release failed")
		}
	}()

	if handled, err := r.topUp.SubmitAmount(ctx, chatID, text); handled || err != nil {
		return err
	}
	if handled, err := r.status.SubmitDepositID(ctx, chatID, text); handled || err != nil {
		return err
	}

	_, err = r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:  chatID,
		Text:    r.tr.T("fallback"),
		Buttons: r.mainMenuButtons(),
	})
	return err
}

func (r *RealTelegramBotAdapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if err := r.auth.SetActiveUser(ctx, &model.ActiveUser{
			ChatID:     chatID,
			Username:   msg.From.UserName,
			LoggedInAt: time.Now(),
		}); err != nil {
			r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("could not persist session")
		}
		_, err := r.SendMessage(ctx, adapter.SendMessageParams{
			ChatID:  chatID,
			Text:    r.tr.T("welcome"),
			Buttons: r.mainMenuButtons(),
		})
		return err
	case "cekstatus":
		return r.status.PromptDepositID(ctx, chatID)
	default:
		_, err := r.SendMessage(ctx, adapter.SendMessageParams{
			ChatID:  chatID,
			Text:    r.tr.T("fallback"),
			Buttons: r.mainMenuButtons(),
		})
		return err
	}
}

func (r *RealTelegramBotAdapter) editToMainMenu(ctx context.Context, chatID int64, messageID int) error {
	return r.EditMessage(ctx, chatID, messageID, adapter.SendMessageParams{
		ChatID:  chatID,
		Text:    r.tr.T("welcome"),
		Buttons: r.mainMenuButtons(),
	})
}

func (r *RealTelegramBotAdapter) mainMenuButtons() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: r.tr.T("btn_topup"), Data: cbMenuTopUp}},
		{{Text: r.tr.T("btn_check_status"), Data: cbMenuCheckStatus}},
	}
}

// SendMessage sends a text message and returns the Telegram message id.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) (int, error) {
	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	msg.ParseMode = p.ParseMode
	if markup := buildMarkup(p.Buttons); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := r.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendPhoto uploads an in-memory image with an optional caption and keyboard.
func (r *RealTelegramBotAdapter) SendPhoto(ctx context.Context, p adapter.SendPhotoParams) error {
	photo := tgbotapi.NewPhoto(p.ChatID, tgbotapi.FileBytes{Name: "qris.png", Bytes: p.Photo})
	photo.Caption = p.Caption
	photo.ParseMode = p.ParseMode
	if markup := buildMarkup(p.Buttons); markup != nil {
		photo.ReplyMarkup = markup
	}
	_, err := r.bot.Send(photo)
	return err
}

// EditMessage rewrites an existing message's text and keyboard in place.
func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, p adapter.SendMessageParams) error {
	if markup := buildMarkup(p.Buttons); markup != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, p.Text, *markup)
		edit.ParseMode = p.ParseMode
		_, err := r.bot.Send(edit)
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, p.Text)
	edit.ParseMode = p.ParseMode
	_, err := r.bot.Send(edit)
	return err
}

// DeleteMessage removes a message, e.g. a progress notice that was replaced.
func (r *RealTelegramBotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func buildMarkup(rows [][]adapter.InlineButton) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			switch {
			case b.URL != "":
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			default:
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		kb = append(kb, btns)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &markup
}
