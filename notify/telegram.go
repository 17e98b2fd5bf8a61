// Package notify sends trading alerts over Telegram and optionally blocks
// for a human yes/no confirmation before an order is submitted.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Alert summarizes a trade setup awaiting approval.
type Alert struct {
	Symbol      string
	Direction   string
	Price       float64
	StopLoss    float64
	TakeProfit  float64
	Size        float64
	PriceFormat string // Printf verb for prices, e.g. "%.4f"
}

// Execution summarizes a submitted order.
type Execution struct {
	Symbol        string
	Direction     string
	Price         float64
	Size          float64
	DealReference string
	PriceFormat   string
}

// botAPI is the slice of tgbotapi.BotAPI the notifier uses; narrowed for
// testing.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Telegram notifies a single chat and polls the same chat for confirmation
// replies. The update offset is threaded explicitly through each poll; the
// notifier itself keeps no cursor state.
type Telegram struct {
	bot                 botAPI
	chatID              int64
	requireConfirmation bool
	confirmationTimeout time.Duration
	pollInterval        time.Duration
	log                 zerolog.Logger
}

// Options configures a Telegram notifier.
type Options struct {
	ChatID              int64
	RequireConfirmation bool
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

func NewTelegram(token string, opts Options, log zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return newTelegram(bot, opts, log), nil
}

func newTelegram(bot botAPI, opts Options, log zerolog.Logger) *Telegram {
	if opts.ConfirmationTimeout <= 0 {
		opts.ConfirmationTimeout = 45 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Telegram{
		bot:                 bot,
		chatID:              opts.ChatID,
		requireConfirmation: opts.RequireConfirmation,
		confirmationTimeout: opts.ConfirmationTimeout,
		pollInterval:        opts.PollInterval,
		log:                 log.With().Str("component", "telegram").Logger(),
	}
}

// SendMessage delivers a plain text message to the configured chat.
// Failures are logged and swallowed; notifications are best-effort.
func (t *Telegram) SendMessage(text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
	}
}

// RequestConfirmation announces the trade setup and, unless auto-approve
// mode is on, waits for a yes/no reply. The reply must match the token
// grammar {yes|no|y|n|buy|sell|long|short|+|-} [symbol]; a timeout or
// context cancellation rejects the trade.
func (t *Telegram) RequestConfirmation(ctx context.Context, a Alert) bool {
	pf := a.PriceFormat
	if pf == "" {
		pf = "%.5f"
	}

	summary := strings.Join([]string{
		"📈 Trade setup detected",
		"Symbol: " + a.Symbol,
		"Direction: " + a.Direction,
		"Entry: " + fmt.Sprintf(pf, a.Price),
		"Stop Loss: " + fmt.Sprintf(pf, a.StopLoss),
		"Take Profit: " + fmt.Sprintf(pf, a.TakeProfit),
		fmt.Sprintf("Size: %.0f", a.Size),
	}, "\n")

	if !t.requireConfirmation {
		t.SendMessage(summary + "\n\nAuto-trading enabled – executing order without confirmation.")
		return true
	}

	t.SendMessage(fmt.Sprintf(
		"%s\n\nReply with 'yes %s' to approve or 'no %s' to cancel within the next %ds.",
		summary, strings.ToUpper(a.Symbol), strings.ToUpper(a.Symbol),
		int(t.confirmationTimeout.Seconds()),
	))

	approved, answered := t.awaitConfirmation(ctx, strings.ToLower(a.Symbol))
	if !answered {
		t.SendMessage(fmt.Sprintf("⏳ Trade request for %s timed out.", a.Symbol))
	}
	return approved
}

// NotifyExecution reports a submitted order, best-effort.
func (t *Telegram) NotifyExecution(e Execution) {
	pf := e.PriceFormat
	if pf == "" {
		pf = "%.5f"
	}
	parts := []string{
		"✅ Trade executed",
		"Symbol: " + e.Symbol,
		"Direction: " + e.Direction,
		"Fill: " + fmt.Sprintf(pf, e.Price),
		fmt.Sprintf("Size: %.0f", e.Size),
	}
	if e.DealReference != "" {
		parts = append(parts, "Deal ref: "+e.DealReference)
	}
	t.SendMessage(strings.Join(parts, "\n"))
}

func (t *Telegram) awaitConfirmation(ctx context.Context, symbolToken string) (approved, answered bool) {
	deadline := time.Now().Add(t.confirmationTimeout)
	offset := 0

	for time.Now().Before(deadline) {
		decisions, next, err := t.pollDecisions(offset, symbolToken)
		if err != nil {
			t.log.Warn().Err(err).Msg("telegram getUpdates failed")
		}
		offset = next
		if len(decisions) > 0 {
			return decisions[0], true
		}

		select {
		case <-ctx.Done():
			return false, true
		case <-time.After(t.pollInterval):
		}
	}
	return false, false
}

// pollDecisions fetches updates after the given offset and extracts any
// yes/no decisions addressed to the symbol. It returns the offset to use
// for the next poll.
func (t *Telegram) pollDecisions(offset int, symbolToken string) ([]bool, int, error) {
	updates, err := t.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: offset, Timeout: 1})
	if err != nil {
		return nil, offset, err
	}

	var decisions []bool
	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}

		msg := u.Message
		if msg == nil {
			msg = u.EditedMessage
		}
		if msg == nil || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		tokens := strings.Fields(strings.ToLower(msg.Text))
		if decision, ok := parseDecision(tokens, symbolToken); ok {
			decisions = append(decisions, decision)
		}
	}
	return decisions, next, nil
}

// parseDecision interprets a reply. A bare yes/no applies regardless of
// symbol; longer forms must name the symbol they answer for.
func parseDecision(tokens []string, symbolToken string) (decision, ok bool) {
	if len(tokens) == 0 {
		return false, false
	}

	if len(tokens) == 1 {
		switch tokens[0] {
		case "yes", "y":
			return true, true
		case "no", "n":
			return false, true
		}
		return false, false
	}

	if tokens[1] != symbolToken {
		return false, false
	}
	switch tokens[0] {
	case "yes", "y", "buy", "long", "+":
		return true, true
	case "no", "n", "sell", "short", "-":
		return false, true
	}
	return false, false
}
