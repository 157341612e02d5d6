package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"codescanner/internal/model"
)

const (
	cmdStatus   = "status"
	cmdHistory  = "history"
	cmdRescan   = "rescan"
	cmdRmFilter = "rmfilter"
)

// statusKeyboard offers the follow-up actions shown under /status.
func statusKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Rescan", cmdRescan+":"),
			tgbotapi.NewInlineKeyboardButtonData("History", cmdHistory+":"),
		),
	)
}

// filterKeyboard offers a remove button per filter, three to a row.
func filterKeyboard(filters []model.Filter) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range filters {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("Remove F%d", f.ID), fmt.Sprintf("%s:%d", cmdRmFilter, f.ID)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"arg", arg,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case cmdHistory:
		b.handleHistory(ctx, chatID, arg)
	case cmdRescan:
		b.handleRescan(chatID)
	case cmdRmFilter:
		b.handleRmFilter(ctx, chatID, arg)
	}
}
