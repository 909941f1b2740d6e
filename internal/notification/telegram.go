package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"daytraderv1/internal/execution"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers alerts through the Telegram Bot API. Fills
// render as a compact trade card; everything else falls back to the
// alert's title and message.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier for the given bot token
// (from @BotFather) and target chat.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       renderTelegram(alert),
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("telegram: decode reply (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !reply.OK {
		return fmt.Errorf("telegram: rejected (status %d): %s", resp.StatusCode, reply.Description)
	}

	log.Printf("[notify] telegram delivered: %s", alert.Title)
	return nil
}

// renderTelegram formats an alert as MarkdownV2. Trade fills get the
// structured card; Telegram requires most punctuation escaped, so every
// dynamic value goes through escapeMD.
func renderTelegram(alert Alert) string {
	var b strings.Builder

	tr := alert.Trade
	if tr != nil {
		switch tr.Action {
		case execution.ActionBuy:
			b.WriteString("📈 *")
		case execution.ActionSell:
			b.WriteString("📉 *")
		}
		b.WriteString(escapeMD(alert.Title))
		b.WriteString("*\n")
		fmt.Fprintf(&b, "`%d shares @ $%s`\n", tr.Shares, escapeMD(fmt.Sprintf("%.2f", tr.Price)))
		fmt.Fprintf(&b, "Amount: $%s\n", escapeMD(tr.Amount.StringFixed(2)))
		fmt.Fprintf(&b, "Balance: $%s\n", escapeMD(tr.Balance.StringFixed(2)))
		fmt.Fprintf(&b, "Service \\#%d", tr.ServiceID)
		if tr.TransactionID != 0 {
			fmt.Fprintf(&b, ", txn \\#%d", tr.TransactionID)
		}
		return b.String()
	}

	switch alert.Level {
	case AlertWarning:
		b.WriteString("⚠️ *")
	case AlertCritical:
		b.WriteString("🚨 *")
	default:
		b.WriteString("ℹ️ *")
	}
	b.WriteString(escapeMD(alert.Title))
	b.WriteString("*\n\n")
	b.WriteString(escapeMD(alert.Message))
	return b.String()
}

// escapeMD backslash-escapes the characters MarkdownV2 treats as syntax.
func escapeMD(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
