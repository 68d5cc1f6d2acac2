package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// SendMessageParams describes an outgoing text message. ParseMode is the
// Telegram parse mode ("Markdown", "HTML") or empty for plain text.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string
	Buttons   [][]InlineButton
}

// SendPhotoParams describes an outgoing photo with an optional caption.
type SendPhotoParams struct {
	ChatID    int64
	Photo     []byte
	Caption   string
	ParseMode string
	Buttons   [][]InlineButton
}

// TelegramBotAdapter is the chat transport port. SendMessage returns the
// message id so flows can edit or delete progressive status messages.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, p SendMessageParams) (messageID int, err error)
	SendPhoto(ctx context.Context, p SendPhotoParams) error
	EditMessage(ctx context.Context, chatID int64, messageID int, p SendMessageParams) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
