package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier receives backup outcome notifications. Notifications are
// fire-and-forget: a failing notifier never affects the backup result.
type Notifier interface {
	BackupSucceeded(artifact *Artifact)
	BackupFailed(kind Kind, reason error)
}

// NopNotifier discards all notifications. Use when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) BackupSucceeded(*Artifact) {}
func (NopNotifier) BackupFailed(Kind, error)  {}

// WebhookNotifier POSTs a small JSON payload to a monitoring endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger Logger
}

// NewWebhookNotifier creates a notifier for the given endpoint URL.
func NewWebhookNotifier(url string, logger Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Event     string    `json:"event"`
	Kind      string    `json:"kind"`
	Filename  string    `json:"filename,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

func (n *WebhookNotifier) BackupSucceeded(artifact *Artifact) {
	n.post(webhookPayload{
		Event:     "backup.succeeded",
		Kind:      string(artifact.Kind),
		Filename:  artifact.Filename,
		SizeBytes: artifact.SizeBytes,
		Checksum:  artifact.Checksum,
		At:        time.Now().UTC(),
	})
}

func (n *WebhookNotifier) BackupFailed(kind Kind, reason error) {
	n.post(webhookPayload{
		Event: "backup.failed",
		Kind:  string(kind),
		Error: reason.Error(),
		At:    time.Now().UTC(),
	})
}

// post delivers the payload, logging failures instead of returning them.
func (n *WebhookNotifier) post(p webhookPayload) {
	body, err := json.Marshal(p)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", "error", err)
		return
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook delivery failed", "url", n.url, "error", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected", "url", n.url, "status", fmt.Sprint(resp.StatusCode))
	}
}

var _ Notifier = (*WebhookNotifier)(nil)
var _ Notifier = NopNotifier{}
