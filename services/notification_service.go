// services/notification_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// NotificationService fans claim results out to the configured chat
// webhooks. Everything here is best-effort: a dead channel is logged and
// skipped, never surfaced to the caller.
type NotificationService struct {
	SlackWebhookURL   string
	DiscordWebhookURL string
	TelegramBotToken  string
	TelegramChatID    string
	Client            *http.Client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type notificationMessage struct {
	Title       string
	Description string
	Fields      []notificationField
	Color       int
}

type notificationField struct {
	Name   string
	Value  string
	Inline bool
}

// SendClaimNotifications announces successful claims on every configured
// channel.
func (n *NotificationService) SendClaimNotifications(results []*ClaimResult) {
	var successful []*ClaimResult
	var total float64
	for _, r := range results {
		if r.Succeeded() {
			successful = append(successful, r)
			total += r.Reward
		}
	}
	if len(successful) == 0 {
		return
	}

	msg := notificationMessage{
		Title:       "🎯 BountyHunter - Auto-Claims Executed",
		Description: fmt.Sprintf("Successfully claimed %d bounties with total rewards of $%.2f", len(successful), total),
		Color:       0x00ff00,
	}
	limit := len(successful)
	if limit > 5 {
		limit = 5
	}
	for _, r := range successful[:limit] {
		msg.Fields = append(msg.Fields, notificationField{
			Name:   fmt.Sprintf("Bounty %s", r.BountyID),
			Value:  fmt.Sprintf("User: %s\nTx: %s", r.UserID, r.TxHash),
			Inline: true,
		})
	}

	n.fanOut(msg)
	log.Printf("🔔 Sent notifications for %d successful claims", len(successful))
}

// SendErrorAlert announces a failed cycle.
func (n *NotificationService) SendErrorAlert(err error, context string) {
	n.fanOut(notificationMessage{
		Title:       "🚨 BountyHunter - Error Alert",
		Description: fmt.Sprintf("Error in %s: %v", context, err),
		Color:       0xff0000,
	})
}

func (n *NotificationService) fanOut(msg notificationMessage) {
	if err := n.sendSlack(msg); err != nil {
		log.Printf("⚠️ Slack notification failed: %v", err)
	}
	if err := n.sendDiscord(msg); err != nil {
		log.Printf("⚠️ Discord notification failed: %v", err)
	}
	if err := n.sendTelegram(msg); err != nil {
		log.Printf("⚠️ Telegram notification failed: %v", err)
	}
}

func (n *NotificationService) sendSlack(msg notificationMessage) error {
	if n.SlackWebhookURL == "" {
		return nil
	}
	fields := make([]map[string]any, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, map[string]any{
			"title": f.Name,
			"value": f.Value,
			"short": f.Inline,
		})
	}
	return n.post(n.SlackWebhookURL, map[string]any{
		"text": msg.Title,
		"attachments": []map[string]any{{
			"color":  "good",
			"title":  msg.Title,
			"text":   msg.Description,
			"fields": fields,
			"ts":     time.Now().Unix(),
		}},
	})
}

func (n *NotificationService) sendDiscord(msg notificationMessage) error {
	if n.DiscordWebhookURL == "" {
		return nil
	}
	fields := make([]map[string]any, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, map[string]any{
			"name":   f.Name,
			"value":  f.Value,
			"inline": f.Inline,
		})
	}
	return n.post(n.DiscordWebhookURL, map[string]any{
		"embeds": []map[string]any{{
			"title":       msg.Title,
			"description": msg.Description,
			"color":       msg.Color,
			"fields":      fields,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

func (n *NotificationService) sendTelegram(msg notificationMessage) error {
	if n.TelegramBotToken == "" || n.TelegramChatID == "" {
		return nil
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.TelegramBotToken)
	return n.post(url, map[string]any{
		"chat_id":    n.TelegramChatID,
		"text":       fmt.Sprintf("%s\n\n%s", msg.Title, msg.Description),
		"parse_mode": "Markdown",
	})
}

func (n *NotificationService) post(url string, body map[string]any) error {
	payload, _ := json.Marshal(body)
	resp, err := n.Client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
