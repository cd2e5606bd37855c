package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/drfailover/internal/model"
)

// Webhook contains activities for sending failover completion notifications.
type Webhook struct {
	client *http.Client
}

// NewWebhook creates a new Webhook activity struct.
func NewWebhook() *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendWebhookParams holds parameters for the SendFailoverWebhook activity.
type SendWebhookParams struct {
	URL        string       `json:"url"`
	Template   string       `json:"template"` // "generic" or "slack"
	WorkflowID string       `json:"workflow_id,omitempty"`
	Result     model.Result `json:"result"`
}

// SendFailoverWebhook POSTs a notification describing a finished failover.
func (a *Webhook) SendFailoverWebhook(ctx context.Context, params SendWebhookParams) error {
	var body []byte
	var err error

	switch params.Template {
	case "slack":
		body, err = buildSlackPayload(params)
	default:
		body, err = buildGenericPayload(params)
	}
	if err != nil {
		return temporal.NewNonRetryableApplicationError("build webhook payload", "MARSHAL_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, params.URL, bytes.NewReader(body))
	if err != nil {
		return temporal.NewNonRetryableApplicationError("create webhook request", "REQUEST_ERROR", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST to %s: %w", params.URL, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("webhook returned %d", resp.StatusCode),
			"CLIENT_ERROR", nil)
	}
	return fmt.Errorf("webhook returned %d", resp.StatusCode)
}

// GenericWebhookPayload is the default JSON payload for webhooks.
type GenericWebhookPayload struct {
	Event      string       `json:"event"`
	WorkflowID string       `json:"workflow_id,omitempty"`
	Result     model.Result `json:"result"`
}

func buildGenericPayload(params SendWebhookParams) ([]byte, error) {
	event := "dr_failover.completed"
	if !params.Result.Succeeded() {
		event = "dr_failover.failed"
	}
	return json.Marshal(GenericWebhookPayload{
		Event:      event,
		WorkflowID: params.WorkflowID,
		Result:     params.Result,
	})
}

// buildSlackPayload creates a Slack Block Kit message with one line per stage.
func buildSlackPayload(params SendWebhookParams) ([]byte, error) {
	emoji := ":white_check_mark:"
	if !params.Result.Succeeded() {
		emoji = ":rotating_light:"
	}

	var lines []string
	for _, stage := range params.Result.Stages {
		line := fmt.Sprintf("*%s*: %s", stage.Stage, stage.Kind)
		if stage.Reason != "" {
			line += " (" + stage.Reason + ")"
		}
		lines = append(lines, line)
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{
				"type": "plain_text",
				"text": "DR failover",
			},
		},
		{
			"type": "section",
			"text": map[string]string{
				"type": "mrkdwn",
				"text": fmt.Sprintf("%s %s", emoji, params.Result.Body),
			},
		},
	}
	if len(lines) > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{
				"type": "mrkdwn",
				"text": strings.Join(lines, "\n"),
			},
		})
	}
	if params.WorkflowID != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "context",
			"elements": []map[string]string{
				{"type": "mrkdwn", "text": "Workflow: `" + params.WorkflowID + "`"},
			},
		})
	}

	return json.Marshal(map[string]interface{}{
		"blocks": blocks,
	})
}
