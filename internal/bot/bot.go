// Package bot wraps the Telegram Bot API as the chat transport for Centaur.
//
// It receives text messages, voice notes, commands and inline-button
// callbacks, delegates them to the conversation engine, and renders replies
// as plain text or as contact cards with feedback buttons.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jkonratt/centaur/internal/contacts"
	"github.com/jkonratt/centaur/internal/voice"
)

// Callback payloads for inline buttons.
const (
	callbackLike        = "like"
	callbackDislike     = "dislike"
	callbackVCardPrefix = "vcard_"
)

// Defaults for the transport.
const (
	defaultUpdateTimeout = 30
	maxVoiceDownloadSize = 20 << 20 // Telegram caps bot file downloads at 20 MB
)

// Assistant is the slice of the conversation engine the transport consumes.
type Assistant interface {
	ProcessRequest(ctx context.Context, chatID int64, text string) (string, error)
	Greet(ctx context.Context, chatID int64, displayName, languageCode string) (string, error)
	AskForFeedback(ctx context.Context, chatID int64) (string, error)
	SetFeedback(ctx context.Context, chatID int64) error
	PositiveFeedback(ctx context.Context, chatID int64) (string, error)
	NegativeFeedback(ctx context.Context, chatID int64) (string, error)
}

// telegramAPI is the slice of the Telegram client used by the bot, kept
// narrow for testing. *tgbotapi.BotAPI satisfies it.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Opts holds configuration options for the Telegram transport.
type Opts struct {
	Token           string
	Domain          string // organizational email domain for contact detection
	RedirectBaseURL string // optional base URL for email/call action buttons
	BotLink         string // optional t.me deep link for the chat action button
	UpdateTimeout   int
	Debug           bool
}

// Option defines a configuration option for the Telegram transport.
type Option func(*Opts)

// WithToken sets the Telegram bot token.
func WithToken(token string) Option {
	return func(o *Opts) {
		o.Token = token
	}
}

// WithDomain sets the organizational email domain used to classify replies
// as contact responses.
func WithDomain(domain string) Option {
	return func(o *Opts) {
		o.Domain = domain
	}
}

// WithRedirectBaseURL sets the base URL used for email/call action buttons.
func WithRedirectBaseURL(url string) Option {
	return func(o *Opts) {
		o.RedirectBaseURL = strings.TrimRight(url, "/")
	}
}

// WithBotLink sets the t.me deep link for the chat action button.
func WithBotLink(link string) Option {
	return func(o *Opts) {
		o.BotLink = link
	}
}

// WithDebug enables Telegram API debug logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) {
		o.Debug = debug
	}
}

// Bot is the Telegram transport adapter.
type Bot struct {
	api          telegramAPI
	engine       Assistant
	transcriber  voice.Transcriber
	contactStore *contacts.Store
	emailPattern *regexp.Regexp
	httpClient   *http.Client
	opts         Opts

	done chan struct{}
}

// New creates the Telegram transport. The engine drives conversation state,
// the transcriber handles voice notes and the contact store backs the
// rendered contact cards.
func New(engine Assistant, transcriber voice.Transcriber, contactStore *contacts.Store, opts ...Option) (*Bot, error) {
	cfg := Opts{UpdateTimeout: defaultUpdateTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("bot.New: options applied", "token_set", cfg.Token != "", "domain", cfg.Domain, "updateTimeout", cfg.UpdateTimeout)

	if cfg.Token == "" {
		slog.Error("bot.New: Telegram bot token not set")
		return nil, fmt.Errorf("telegram bot token not set")
	}
	pattern, err := compileEmailPattern(cfg.Domain)
	if err != nil {
		slog.Error("bot.New: invalid email domain", "error", err, "domain", cfg.Domain)
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("bot.New: failed to create Telegram client", "error", err)
		return nil, fmt.Errorf("failed to create Telegram client: %w", err)
	}
	api.Debug = cfg.Debug
	slog.Info("bot.New: authorized on Telegram", "username", api.Self.UserName)

	return &Bot{
		api:          api,
		engine:       engine,
		transcriber:  transcriber,
		contactStore: contactStore,
		emailPattern: pattern,
		httpClient:   &http.Client{Timeout: time.Minute},
		opts:         cfg,
		done:         make(chan struct{}),
	}, nil
}

// Start begins long-polling for updates in the background.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.opts.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	go func() {
		defer close(b.done)
		slog.Info("bot.Start: update loop running")
		for {
			select {
			case <-ctx.Done():
				slog.Info("bot.Start: context cancelled, stopping update loop")
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("bot.Start: update channel closed")
					return
				}
				b.handleUpdate(ctx, update)
			}
		}
	}()
	return nil
}

// Stop stops receiving updates and waits for the loop to drain.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	<-b.done
	slog.Info("bot.Stop: update loop stopped")
}

// handleUpdate dispatches one inbound event. Per-chat exclusivity is enforced
// inside the engine, so updates for distinct chats may be handled here
// without interference.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
		// Ignore edits, channel posts and other update kinds.
	case update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message.Voice != nil:
		b.handleVoice(ctx, update.Message)
	case update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

// handleCommand answers /start-class commands with a personalized greeting.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	lang := senderLanguage(msg)

	switch msg.Command() {
	case "start", "hello", "init":
		name := ""
		if msg.From != nil {
			name = msg.From.FirstName
		}
		reply, err := b.engine.Greet(ctx, chatID, name, lang)
		if err != nil {
			slog.Error("bot.handleCommand: greet failed", "error", err, "chatID", chatID)
			b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, reply))
	default:
		slog.Debug("bot.handleCommand: ignoring unknown command", "command", msg.Command(), "chatID", chatID)
	}
}

// handleText forwards a text message to the engine.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	b.processRequest(ctx, msg.Chat.ID, msg.Text, senderLanguage(msg))
}

// handleVoice downloads, transcribes and then processes a voice note.
// Recognition failures are answered with a localized apology and the turn is
// not otherwise processed.
func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	lang := senderLanguage(msg)

	audio, err := b.downloadVoice(ctx, msg.Voice.FileID)
	if err != nil {
		slog.Error("bot.handleVoice: voice download failed", "error", err, "chatID", chatID)
		b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
		return
	}

	text, err := b.transcriber.Transcribe(ctx, audio, lang)
	if err != nil {
		slog.Warn("bot.handleVoice: transcription failed", "error", err, "chatID", chatID)
		if errors.Is(err, voice.ErrInaudible) {
			b.send(tgbotapi.NewMessage(chatID, inaudibleApology(lang)))
		} else {
			b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
		}
		return
	}
	slog.Debug("bot.handleVoice: transcription succeeded", "chatID", chatID, "textLength", len(text))

	b.processRequest(ctx, chatID, text, lang)
}

// processRequest runs one engine turn and renders the reply: contact cards
// plus the feedback flow when the reply references organizational contacts,
// plain text otherwise.
func (b *Bot) processRequest(ctx context.Context, chatID int64, text, lang string) {
	reply, err := b.engine.ProcessRequest(ctx, chatID, text)
	if err != nil {
		slog.Error("bot.processRequest: engine turn failed", "error", err, "chatID", chatID)
		b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
		return
	}

	emails := extractEmails(b.emailPattern, reply)
	if len(emails) == 0 {
		b.send(tgbotapi.NewMessage(chatID, reply))
		return
	}

	b.sendContacts(chatID, emails)

	if err := b.engine.SetFeedback(ctx, chatID); err != nil {
		slog.Error("bot.processRequest: feedback transition failed", "error", err, "chatID", chatID)
		return
	}
	question, err := b.engine.AskForFeedback(ctx, chatID)
	if err != nil {
		slog.Error("bot.processRequest: feedback prompt failed", "error", err, "chatID", chatID)
		return
	}
	prompt := tgbotapi.NewMessage(chatID, question)
	prompt.ReplyMarkup = feedbackKeyboard()
	b.send(prompt)
}

// sendContacts renders one card per referenced contact.
func (b *Bot) sendContacts(chatID int64, emails []string) {
	for _, email := range emails {
		contact := b.contactStore.FindByEmail(email)
		if contact == nil {
			slog.Warn("bot.sendContacts: no contact for referenced email", "email", email, "chatID", chatID)
			continue
		}
		card := tgbotapi.NewMessage(chatID, fmt.Sprintf("*%s*\n%s @ %s", contact.Name, contact.Position, contact.Department))
		card.ParseMode = tgbotapi.ModeMarkdown
		card.ReplyMarkup = b.contactKeyboard(contact.Email, contact.Phone)
		b.send(card)
	}
}

// handleCallback resolves inline-button events: like/dislike feedback and
// vCard requests.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Warn("bot.handleCallback: failed to answer callback", "error", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	lang := ""
	if cb.From != nil {
		lang = cb.From.LanguageCode
	}

	switch {
	case cb.Data == callbackLike:
		b.clearButtons(chatID, cb.Message.MessageID)
		reply, err := b.engine.PositiveFeedback(ctx, chatID)
		if err != nil {
			slog.Error("bot.handleCallback: positive feedback failed", "error", err, "chatID", chatID)
			b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, reply))

	case cb.Data == callbackDislike:
		b.clearButtons(chatID, cb.Message.MessageID)
		reply, err := b.engine.NegativeFeedback(ctx, chatID)
		if err != nil {
			slog.Error("bot.handleCallback: negative feedback failed", "error", err, "chatID", chatID)
			b.send(tgbotapi.NewMessage(chatID, errorApology(lang)))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, reply))

	case strings.HasPrefix(cb.Data, callbackVCardPrefix):
		b.sendVCard(chatID, strings.TrimPrefix(cb.Data, callbackVCardPrefix))

	default:
		slog.Debug("bot.handleCallback: ignoring unknown callback", "data", cb.Data, "chatID", chatID)
	}
}

// sendVCard sends the contact's vCard as a document attachment.
func (b *Bot) sendVCard(chatID int64, email string) {
	contact := b.contactStore.FindByEmail(email)
	if contact == nil {
		slog.Warn("bot.sendVCard: no contact for email", "email", email, "chatID", chatID)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  contact.Name + ".vcf",
		Bytes: contacts.VCard(*contact),
	})
	doc.Caption = fmt.Sprintf("vCard for %s", contact.Name)
	b.send(doc)
}

// clearButtons removes the inline keyboard from an answered message.
func (b *Bot) clearButtons(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		slog.Warn("bot.clearButtons: failed to clear keyboard", "error", err, "chatID", chatID)
	}
}

// downloadVoice fetches the raw ogg bytes for a Telegram voice note.
func (b *Bot) downloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve voice file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceDownloadSize))
}

// send delivers one outbound message, logging failures without propagating.
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		slog.Error("bot.send: failed to send message", "error", err)
	}
}

// feedbackKeyboard builds the like/dislike inline keyboard.
func feedbackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", callbackLike),
			tgbotapi.NewInlineKeyboardButtonData("👎", callbackDislike),
		),
	)
}

// contactKeyboard builds the action row for a contact card: chat, email and
// call links when configured, plus the vCard button.
func (b *Bot) contactKeyboard(email, phone string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if b.opts.BotLink != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("💬", b.opts.BotLink))
	}
	if b.opts.RedirectBaseURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("✉", fmt.Sprintf("%s?email=%s", b.opts.RedirectBaseURL, email)))
		if phone != "" {
			row = append(row, tgbotapi.NewInlineKeyboardButtonURL("📞", fmt.Sprintf("%s?tel=%s", b.opts.RedirectBaseURL, phone)))
		}
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("💾", callbackVCardPrefix+email))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

// senderLanguage extracts the sender's language code, empty when unknown.
func senderLanguage(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	return msg.From.LanguageCode
}
