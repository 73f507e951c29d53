package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/util"
)

const defaultUsername = "Trading Expert AI"

// Discord posts alert messages to a webhook. Delivery is fire-and-forget
// from the scheduler's perspective: failures are observable only through the
// returned boolean and the log, never as an error in the evaluation cycle.
type Discord struct {
	webhookURL string
	username   string
	hc         *http.Client
	log        *util.Logger
}

func NewDiscord(cfg config.NotifyConfig) *Discord {
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	return &Discord{
		webhookURL: cfg.WebhookURL,
		username:   username,
		hc:         &http.Client{Timeout: 10 * time.Second},
		log:        util.NewLogger("notify"),
	}
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Send delivers one message. A missing webhook URL, transport failure, or
// non-2xx status all return false after logging.
func (d *Discord) Send(ctx context.Context, message string) bool {
	if d.webhookURL == "" {
		d.log.Debug("No webhook URL configured, skipping notification")
		return false
	}

	body, err := json.Marshal(webhookPayload{Content: message, Username: d.username})
	if err != nil {
		d.log.Error(err, common.ErrCodeDispatchFailed, common.ErrMsgDispatchFailed, "Failed to encode webhook payload")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.log.Error(err, common.ErrCodeDispatchFailed, common.ErrMsgDispatchFailed, "Failed to build webhook request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.hc.Do(req)
	if err != nil {
		d.log.Error(err, common.ErrCodeDispatchFailed, common.ErrMsgDispatchFailed, "Webhook delivery failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.log.Error(nil, common.ErrCodeDispatchFailed, common.ErrMsgDispatchFailed,
			"Webhook returned error status", "status", resp.StatusCode)
		return false
	}

	d.log.Debug("Notification delivered")
	return true
}
