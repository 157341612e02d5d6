package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"codescanner/internal/filter"
	"codescanner/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Code Scanner!

Codes recognized by the camera are posted to this chat.

Quick start:
1. /status — see what the scanner is doing
2. /rescan — start a fresh scan run
3. /include <word> — only forward codes containing a word

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Scanner:
/status — capture and session state
/history [n] — last n results (default 10, max 50)
/rescan — restart capture and forget codes already seen
/torch on|off — switch the torch

Filters (applied to forwarded codes):
/filters — show filters
/include <word> — whitelist word/phrase
/exclude <word> — blacklist word/phrase
/include_re <regex> — whitelist regex
/exclude_re <regex> — blacklist regex
/rmfilter <filter_id> — remove a filter`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	succeeded, failed, err := b.store.CountResults(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	text := FormatStatus(b.scan.Status(), b.session.State(), succeeded, failed)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = statusKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send status", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64, args string) {
	limit, err := ParseLimit(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	records, err := b.store.ListRecent(ctx, limit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatHistory(records))
}

func (b *Bot) handleRescan(chatID int64) {
	if st := b.scan.Status(); st.SetupError != nil {
		b.reply(chatID, fmt.Sprintf("Camera unavailable: %v", st.SetupError))
		return
	}
	b.scan.Rescan()
	b.reply(chatID, fmt.Sprintf("Scanning restarted (run %s).", shortRun(b.scan.Status().RunID)))
}

func (b *Bot) handleTorch(chatID int64, args string) {
	on, err := ParseOnOff(args)
	if err != nil {
		b.reply(chatID, "Usage: /torch on|off")
		return
	}
	b.scan.Update(on)
	if on {
		b.reply(chatID, "Torch on.")
		return
	}
	b.reply(chatID, "Torch off.")
}

// filtersApply reports whether filters set from chatID affect notifications,
// replying when they would not. Results are only forwarded to the notify chat.
func (b *Bot) filtersApply(chatID int64) bool {
	if b.cfg.NotifyChatID == 0 || chatID == b.cfg.NotifyChatID {
		return true
	}
	b.reply(chatID, "Filters apply to scan notifications, which are sent to another chat. Manage filters there.")
	return false
}

func (b *Bot) handleFilters(ctx context.Context, chatID int64) {
	if !b.filtersApply(chatID) {
		return
	}
	filters, err := b.store.ListFilters(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(filters) == 0 {
		b.reply(chatID, FormatFilterList(filters))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatFilterList(filters))
	msg.ReplyMarkup = filterKeyboard(filters)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send filters", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleAddFilter(ctx context.Context, chatID int64, args string, kind string) {
	if !b.filtersApply(chatID) {
		return
	}
	value, err := ParseFilterValue(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <value>", kind))
		return
	}

	fk := model.FilterKind(kind)
	if fk == model.FilterIncludeRe || fk == model.FilterExcludeRe {
		if err := filter.ValidateRegex(value); err != nil {
			b.reply(chatID, fmt.Sprintf("Invalid regex: %v", err))
			return
		}
	}

	f := &model.Filter{
		ChatID: chatID,
		Kind:   fk,
		Value:  value,
	}
	if err := b.store.CreateFilter(ctx, f); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Filter F%d added: %s %s", f.ID, kind, value))
}

func (b *Bot) handleRmFilter(ctx context.Context, chatID int64, args string) {
	if !b.filtersApply(chatID) {
		return
	}
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmfilter <filter_id>")
		return
	}

	f, err := b.store.GetFilter(ctx, id)
	if err != nil || f.ChatID != chatID {
		b.reply(chatID, fmt.Sprintf("Filter F%d not found.", id))
		return
	}

	if err := b.store.DeleteFilter(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Filter F%d removed.", id))
}
