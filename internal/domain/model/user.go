package model

import "time"

// ActiveUser is the gateway account currently bound to a Telegram chat.
// The login flow writes it; the top-up flow only reads it as a precondition.
type ActiveUser struct {
	ChatID     int64     `json:"chat_id"`
	Username   string    `json:"username"`
	LoggedInAt time.Time `json:"logged_in_at"`
}
