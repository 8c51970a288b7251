package telegram

import (
	"context"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/opsdesk/workspace-bot/internal/domain"
	"github.com/opsdesk/workspace-bot/internal/services"
)

// Replies owned by the transport layer.
const (
	replyThrottled = "You're sending requests too quickly. Please slow down."
	replyUnknown   = "Unknown command. Try /help"
)

// Handler routes one incoming message to the right orchestrator and returns
// the reply texts to send, in order. It holds no per-request state and is
// safe for concurrent use from one goroutine per update.
type Handler struct {
	provision *services.ProvisionService
	accounts  *services.AccountService
	limiter   *callerLimiter
	log       zerolog.Logger
}

// NewHandler wires the command router. rps/burst configure the per-caller
// rate limit; rps <= 0 disables it.
func NewHandler(prov *services.ProvisionService, accts *services.AccountService, rps float64, burst int, log zerolog.Logger) *Handler {
	return &Handler{
		provision: prov,
		accounts:  accts,
		limiter:   newCallerLimiter(rps, burst),
		log:       log.With().Str("component", "telegram").Logger(),
	}
}

// Dispatch processes one message and returns the replies for its chat.
// A nil sender or empty body yields no reply at all.
func (h *Handler) Dispatch(ctx context.Context, msg *tgbotapi.Message) []string {
	if msg == nil || msg.From == nil {
		return nil
	}
	caller := domain.Caller{Username: msg.From.UserName, ID: msg.From.ID}

	if !h.limiter.Allow(caller.ID) {
		h.log.Warn().Str("caller", caller.String()).Msg("rate limited")
		return []string{replyThrottled}
	}

	if msg.IsCommand() {
		return h.dispatchCommand(ctx, caller, msg)
	}

	body := strings.TrimSpace(msg.Text)
	if body == "" {
		return nil
	}
	return h.provision.FromMessage(ctx, caller, msg.Text).Replies
}

func (h *Handler) dispatchCommand(ctx context.Context, caller domain.Caller, msg *tgbotapi.Message) []string {
	args := strings.Fields(msg.CommandArguments())
	raw := msg.Text

	var res services.Result
	switch msg.Command() {
	case "start":
		res = h.accounts.Start(caller)
	case "help":
		res = h.accounts.Help(caller)
	case "adduser":
		res = h.provision.FromCommand(ctx, caller, args, raw)
	case "suspend":
		res = h.accounts.Suspend(ctx, caller, args, raw)
	case "resetpw":
		res = h.accounts.ResetPassword(ctx, caller, args, raw)
	case "userinfo":
		res = h.accounts.GetInfo(ctx, caller, args, raw)
	case "listusers":
		res = h.accounts.ListUsers(ctx, caller, raw)
	default:
		return []string{replyUnknown}
	}
	return res.Replies
}

// botCommands is what gets registered with the chat platform at startup.
var botCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Welcome message and expected format"},
	{Command: "adduser", Description: "Create an account: /adduser First Last desired@ recovery@ [comment]"},
	{Command: "suspend", Description: "Suspend an account by email"},
	{Command: "resetpw", Description: "Reset an account password"},
	{Command: "userinfo", Description: "Show account details"},
	{Command: "listusers", Description: "List all accounts"},
	{Command: "help", Description: "Show available commands"},
}

// Bot owns the long-poll loop. Each update is handled in its own goroutine;
// ordering between concurrent commands is not guaranteed.
type Bot struct {
	api   *tgbotapi.BotAPI
	h     *Handler
	log   zerolog.Logger
	ready atomic.Bool
}

// NewBot wraps an authenticated bot API.
func NewBot(api *tgbotapi.BotAPI, h *Handler, log zerolog.Logger) *Bot {
	return &Bot{api: api, h: h, log: log.With().Str("component", "telegram").Logger()}
}

// Ready reports whether the update poller is running. It backs the ops
// readiness probe.
func (b *Bot) Ready() bool { return b.ready.Load() }

// Run registers the command list and polls for updates until ctx is
// canceled.
func (b *Bot) Run(ctx context.Context) {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		b.log.Warn().Err(err).Msg("set bot commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.ready.Store(true)
	defer b.ready.Store(false)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.log.Info().Msg("polling for updates")
	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := update.Message
		go func() {
			for _, text := range b.h.Dispatch(ctx, msg) {
				if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
					b.log.Error().Int64("chat_id", msg.Chat.ID).Err(err).Msg("send reply")
				}
			}
		}()
	}
	b.log.Info().Msg("update stream closed")
}
