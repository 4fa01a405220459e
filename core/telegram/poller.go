package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/estatebot/core/config"

	tele "gopkg.in/telebot.v4"
)

// BuildPoller returns a webhook or long poller for the configured run mode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	timeout := cfg.Telegram.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeout) * time.Second}
}
