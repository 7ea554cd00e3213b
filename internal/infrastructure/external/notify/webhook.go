package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
)

// WebhookGateway delivers role group notifications by POSTing JSON to a
// configured URL per role group. It implements port.NotificationGateway;
// delivery failures are reported to the caller, which swallows them.
type WebhookGateway struct {
	endpoints map[string]string
	client    *http.Client
	logger    *zap.Logger
}

// NewWebhookGateway creates a gateway from a role group to URL mapping
func NewWebhookGateway(endpoints map[string]string, timeout time.Duration, logger *zap.Logger) *WebhookGateway {
	return &WebhookGateway{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// notificationPayload is the wire format posted to role group endpoints
type notificationPayload struct {
	RoleGroup string    `json:"role_group"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	SentAt    time.Time `json:"sent_at"`
}

// Notify posts a message to the role group's webhook endpoint
func (g *WebhookGateway) Notify(ctx context.Context, roleGroup string, message string, runID string) error {
	url, ok := g.endpoints[roleGroup]
	if !ok || url == "" {
		g.logger.Warn("No webhook endpoint configured for role group",
			zap.String("role_group", roleGroup))
		return nil
	}

	body, err := json.Marshal(notificationPayload{
		RoleGroup: roleGroup,
		Message:   message,
		RunID:     runID,
		SentAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	g.logger.Info("Notification delivered",
		zap.String("role_group", roleGroup),
		zap.String("run_id", runID))
	return nil
}

// Verify interface compliance
var _ port.NotificationGateway = (*WebhookGateway)(nil)
