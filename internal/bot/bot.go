package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"work-journal/internal/model"
	"work-journal/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageDate
	stageCategory
	stageText
)

const cbDeletePrefix = "delete:"

const (
	btnToday        = "📅 Today"
	btnConfirm      = "✅ Confirm"
	btnCancel       = "↩️ Cancel"
	btnCancelDialog = "⏪ Stop"
	menuLabelNew    = "➕ New entry"
	menuLabelWeek   = "📓 This week"
	menuLabelWeeks  = "🗂 All weeks"
	menuLabelHelp   = "ℹ️ Help"
)

// sender is the subset of the Telegram API used to talk to the owner.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type conversationState struct {
	stage conversationStage
	form  service.EntryForm
}

type confirmationRequest struct {
	entryID uint
}

// Bot is a Telegram front-end to the journal for its single owner.
type Bot struct {
	client        *tgbotapi.BotAPI
	api           sender
	ownerID       int64
	journal       *service.JournalService
	digest        *service.DigestService
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, ownerID int64, journal *service.JournalService, digest *service.DigestService) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", client.Self.UserName)

	b := newBot(client, ownerID, journal, digest)
	b.client = client
	return b, nil
}

func newBot(api sender, ownerID int64, journal *service.JournalService, digest *service.DigestService) *Bot {
	return &Bot{
		api:           api,
		ownerID:       ownerID,
		journal:       journal,
		digest:        digest,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("bot has no telegram client")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

// SendWeeklyDigest pushes the current week's summary to the owner.
func (b *Bot) SendWeeklyDigest(ctx context.Context) error {
	text, err := b.digest.WeeklyDigest(ctx, b.now())
	if err != nil {
		return err
	}
	return b.sendText(b.ownerID, text)
}

func (b *Bot) authorized(from *tgbotapi.User) bool {
	return from != nil && b.ownerID != 0 && from.ID == b.ownerID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.authorized(msg.From) {
		log.Printf("[info] rejected message from %d", msg.From.ID)
		return b.sendPlain(msg.Chat.ID, "⛔ This journal is private.")
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Stopped. Nothing was saved.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command /%s %s", msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Send /new to add an entry or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "new":
		return b.startNewEntryConversation(msg)
	case "week":
		return b.handleWeek(ctx, msg.Chat.ID)
	case "weeks":
		return b.handleWeeks(ctx, msg.Chat.ID)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "📓 <b>Work journal</b>\n" +
		"• /new — record an entry step by step\n" +
		"• /week — this week's entries\n" +
		"• /weeks — every week, oldest first\n" +
		"• /delete &lt;id&gt; — delete an entry\n" +
		"• /cancel — stop the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNew:
		return true, b.startNewEntryConversation(msg)
	case menuLabelWeek:
		return true, b.handleWeek(ctx, msg.Chat.ID)
	case menuLabelWeeks:
		return true, b.handleWeeks(ctx, msg.Chat.ID)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	}
	return false, nil
}

func (b *Bot) startNewEntryConversation(msg *tgbotapi.Message) error {
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{
		stage: stageDate,
		form:  service.EntryForm{IdempotencyKey: uuid.NewString()},
	})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New entry.\n<b>Step 1:</b> which day? Send <code>2024-01-31</code> or press «Today».", dateKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageDate:
		date := text
		if isTodayInput(text) {
			date = b.now().Format(model.DateLayout)
		}
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Can't read that date. Use <code>2024-01-31</code> or «Today».", dateKeyboard())
		}
		state.form.Date = date
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Step 2:</b> pick a category.", categoryKeyboard())
	case stageCategory:
		if _, ok := model.ParseTag(stripIcon(text)); !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons: Work, Learning or Interesting things.", categoryKeyboard())
		}
		state.form.Category = stripIcon(text)
		state.stage = stageText
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ <b>Step 3:</b> what happened?", cancelKeyboard())
	case stageText:
		state.form.Text = msg.Text
		return b.finishEntryCreation(ctx, msg.From.ID, msg.Chat.ID, state.form)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /new.")
	}
}

func (b *Bot) finishEntryCreation(ctx context.Context, userID, chatID int64, form service.EntryForm) error {
	input, err := service.ValidateEntry(form)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) && verr.Field == service.FieldText {
			return b.sendWithReplyMarkup(chatID, "The note can't be empty. What happened?", cancelKeyboard())
		}
		b.clearConversation(userID)
		return b.sendText(chatID, fmt.Sprintf("Could not save the entry: %s", escape(err.Error())))
	}

	id, err := b.journal.Create(ctx, input)
	b.clearConversation(userID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the entry: %s", escape(err.Error())))
	}

	log.Printf("[info] entry created id=%d date=%s tag=%s via telegram", id, input.Date.Format(model.DateLayout), input.Tag)

	var summary strings.Builder
	summary.WriteString("✅ <b>Entry saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", id))
	summary.WriteString(fmt.Sprintf("• <b>Date:</b> %s\n", input.Date.Format(model.DateLayout)))
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", escape(input.Tag.Label())))
	summary.WriteString(fmt.Sprintf("• <b>Text:</b> %s", escape(input.Text)))
	return b.sendText(chatID, summary.String())
}

func (b *Bot) handleWeek(ctx context.Context, chatID int64) error {
	now := b.now()
	text, err := b.digest.WeeklyDigest(ctx, now)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the journal: %s", escape(err.Error())))
	}

	weeks, err := b.journal.Weeks(ctx)
	if err != nil {
		return b.sendText(chatID, text)
	}
	key := service.WeekStart(now).Format(model.DateLayout)
	for _, week := range weeks {
		if week.Key == key {
			if markup, ok := deleteButtons(week); ok {
				return b.sendWithReplyMarkup(chatID, text, markup)
			}
		}
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleWeeks(ctx context.Context, chatID int64) error {
	weeks, err := b.journal.Weeks(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the journal: %s", escape(err.Error())))
	}
	return b.sendText(chatID, service.FormatWeeks(weeks))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the entry id: /delete 12")
	}
	id, err := parseEntryID(args, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "The entry id must be a number.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From.ID, id)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
	if !b.authorized(cb.From) {
		return nil
	}

	if strings.HasPrefix(cb.Data, cbDeletePrefix) {
		id, err := parseEntryID(cb.Data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, cb.Message.Chat.ID, cb.From.ID, id)
	}
	return nil
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID, userID int64, id uint) error {
	entry, err := b.journal.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(chatID, "Entry not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	b.clearConversation(userID)
	b.setConfirmation(userID, confirmationRequest{entryID: entry.ID})
	text := fmt.Sprintf("Delete entry #%d from %s «%s»?", entry.ID, entry.DateString(), escape(shortText(entry.Text, 60)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteEntry(ctx, msg.Chat.ID, req.entryID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept the entry.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteEntry(ctx context.Context, chatID int64, id uint) error {
	if err := b.journal.Delete(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(chatID, "Entry not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] entry deleted id=%d via telegram", id)
	return b.sendText(chatID, fmt.Sprintf("🗑 Entry #%d deleted.", id))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPlain(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func parseEntryID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortText(text string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
